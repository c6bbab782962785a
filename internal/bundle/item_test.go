// Copyright 2025 Certen Protocol
package bundle

import (
	"testing"

	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

func mustWallet(t *testing.T) *walletkey.Wallet {
	t.Helper()
	w, err := walletkey.New()
	if err != nil {
		t.Fatalf("generate wallet: %v", err)
	}
	return w
}

func TestSignItem_VerifyItem_RoundTrip(t *testing.T) {
	w := mustWallet(t)
	it := &Item{Tags: []Tag{{Name: "Foo", Value: "bar"}}, Bytes: []byte("hello")}

	if err := SignItem(it, w); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !VerifyItem(it) {
		t.Fatal("expected signed item to verify")
	}

	signer, err := Signer(it)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	if signer != w.Address() {
		t.Fatalf("signer mismatch: got %s, want %s", signer, w.Address())
	}
}

func TestVerifyItem_TamperedSignature(t *testing.T) {
	w := mustWallet(t)
	it := &Item{Bytes: []byte("hello")}
	if err := SignItem(it, w); err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := make([]byte, len(it.Signature))
	copy(tampered, it.Signature)
	tampered[0] ^= 0xFF
	it.Signature = tampered

	if VerifyItem(it) {
		t.Fatal("expected tampered signature to fail verification")
	}
}

func TestVerifyItem_Unsigned(t *testing.T) {
	it := &Item{Bytes: []byte("hello")}
	if VerifyItem(it) {
		t.Fatal("expected unsigned item to fail verification")
	}
	if _, err := Signer(it); err == nil {
		t.Fatal("expected Signer to error on an unsigned item")
	}
}

func TestUnsignedID_ExcludesSignature(t *testing.T) {
	w := mustWallet(t)
	it := &Item{Bytes: []byte("hello")}
	before := UnsignedID(it)

	if err := SignItem(it, w); err != nil {
		t.Fatalf("sign: %v", err)
	}
	after := UnsignedID(it)

	if before != after {
		t.Fatalf("unsigned ID changed after signing: %x != %x", before, after)
	}
	if SignedID(it) == UnsignedID(it) {
		t.Fatal("signed and unsigned IDs should differ once a signature is present")
	}
}

func TestUnsignedID_StableAcrossMapIterationOrder(t *testing.T) {
	a := &Item{Map: map[string]*Item{
		"1": {Bytes: []byte("one")},
		"2": {Bytes: []byte("two")},
		"3": {Bytes: []byte("three")},
	}}
	b := &Item{Map: map[string]*Item{
		"3": {Bytes: []byte("three")},
		"1": {Bytes: []byte("one")},
		"2": {Bytes: []byte("two")},
	}}

	if UnsignedID(a) != UnsignedID(b) {
		t.Fatal("canonical ID must not depend on map construction/iteration order")
	}
}

func TestMember(t *testing.T) {
	leaf := &Item{Bytes: []byte("leaf")}
	leafID := UnsignedID(leaf)

	wrapper := &Item{Map: map[string]*Item{"inner": leaf}}

	if !Member(leafID, wrapper) {
		t.Fatal("expected leaf's unsigned ID to be found via Member")
	}
	if !Member(UnsignedID(wrapper), wrapper) {
		t.Fatal("an item is always a member of itself")
	}

	other := &Item{Bytes: []byte("unrelated")}
	if Member(UnsignedID(other), wrapper) {
		t.Fatal("unrelated item should not be a member")
	}
}

func TestEncodeID_DecodeAddress_RoundTrip(t *testing.T) {
	w := mustWallet(t)
	encoded := EncodeID(w.Address())

	decoded, err := walletkey.DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != w.Address() {
		t.Fatal("decoded address does not match original")
	}
}

func TestNormalize_RejectsMixedData(t *testing.T) {
	it := &Item{Bytes: []byte("x"), Map: map[string]*Item{"a": {Bytes: []byte("y")}}}
	if _, err := Normalize(it); err == nil {
		t.Fatal("expected Normalize to reject an item with both Bytes and Map set")
	}
}
