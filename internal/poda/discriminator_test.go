// Copyright 2025 Certen Protocol
package poda

import (
	"testing"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
)

func TestIsUserSigned_NilMessage(t *testing.T) {
	if !IsUserSigned(nil) {
		t.Fatal("nil message should be treated as user-signed (fail open)")
	}
}

func TestIsUserSigned_NoMessageKey(t *testing.T) {
	msg := &bundle.Item{Bytes: []byte("plain")}
	if !IsUserSigned(msg) {
		t.Fatal("a shape without a Message key should be treated as user-signed")
	}
}

func TestIsUserSigned_NoFromProcessTag(t *testing.T) {
	inner := &bundle.Item{Bytes: []byte("content")}
	outer := &bundle.Item{Map: map[string]*bundle.Item{"Message": inner}}
	if !IsUserSigned(outer) {
		t.Fatal("inner message with no From-Process tag should be user-signed")
	}
}

func TestIsUserSigned_FromProcessTagPresent(t *testing.T) {
	inner := &bundle.Item{Tags: []bundle.Tag{{Name: "From-Process", Value: "abc"}}}
	outer := &bundle.Item{Map: map[string]*bundle.Item{"Message": inner}}
	if IsUserSigned(outer) {
		t.Fatal("inner message carrying From-Process should not be user-signed")
	}
}
