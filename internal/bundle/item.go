// Copyright 2025 Certen Protocol
//
// Item is the universal transport envelope: a target, ordered tags, and a
// data payload that is either an opaque byte string or a mapping of nested
// items. IDs are Keccak256 digests over a deterministic serialization of
// the item tree, with nested map keys sorted so an ID never depends on map
// construction order.
package bundle

import (
	"bytes"
	"errors"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// ID identifies an item by the hash of its canonical content. It shares its
// shape with walletkey.Address: both are opaque 32-byte identifiers, and a
// message's Target is routinely another item's ID.
type ID = walletkey.Address

// Tag is an ordered (name, value) pair. Order and multiplicity are
// significant: the wire format never deduplicates tags.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Item is the envelope every message, attestation, and bundle in this
// device is built from. Bytes and Map are mutually exclusive: an item either
// carries an opaque payload or a mapping of nested items, never both.
type Item struct {
	Target    ID               `json:"target,omitempty"`
	HasTarget bool             `json:"has_target,omitempty"`
	Tags      []Tag            `json:"tags,omitempty"`
	Bytes     []byte           `json:"bytes,omitempty"`
	Map       map[string]*Item `json:"map,omitempty"`
	Signature []byte           `json:"signature,omitempty"`
}

// ErrMixedData is returned when an item declares both an opaque byte payload
// and a nested mapping, which the data model forbids.
var ErrMixedData = errors.New("bundle: item data cannot be both bytes and a mapping")

func (it *Item) validateShape() error {
	if it == nil {
		return errors.New("bundle: nil item")
	}
	if len(it.Bytes) > 0 && it.Map != nil {
		return ErrMixedData
	}
	return nil
}

// Tag returns the value of the first tag named name, and whether it exists.
func (it *Item) Tag(name string) (string, bool) {
	for _, t := range it.Tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// HasTag reports whether any tag matches (name, value) exactly.
func (it *Item) HasTag(name, value string) bool {
	for _, t := range it.Tags {
		if t.Name == name && t.Value == value {
			return true
		}
	}
	return false
}

// TagValues returns every value of tags named name, preserving order and
// multiplicity (used by the options parser for "Authority").
func (it *Item) TagValues(name string) []string {
	var out []string
	for _, t := range it.Tags {
		if t.Name == name {
			out = append(out, t.Value)
		}
	}
	return out
}

// Normalize canonicalizes an item tree: it validates the mutual-exclusion
// invariant recursively. Nested map iteration is already order-independent
// at the Go level, and canonical() below sorts keys before hashing, so
// normalization here is a validation pass rather than a byte rewrite.
func Normalize(it *Item) (*Item, error) {
	if err := it.validateShape(); err != nil {
		return nil, err
	}
	for _, v := range it.Map {
		if _, err := Normalize(v); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// canonical serializes an item deterministically for hashing: target, then
// tags in declared order, then either the raw bytes or the map entries
// sorted by key (each nested item recursively canonicalized with its own
// signature included, since a nested item is independently signed content).
func canonical(it *Item, includeSignature bool) []byte {
	var buf bytes.Buffer
	if it.HasTarget {
		buf.Write(it.Target.Bytes())
	}
	for _, t := range it.Tags {
		buf.WriteString(t.Name)
		buf.WriteByte(0)
		buf.WriteString(t.Value)
		buf.WriteByte(0)
	}
	if it.Map != nil {
		keys := make([]string, 0, len(it.Map))
		for k := range it.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(k)
			buf.WriteByte(0)
			buf.Write(canonical(it.Map[k], true))
		}
	} else {
		buf.Write(it.Bytes)
	}
	if includeSignature {
		buf.Write(it.Signature)
	}
	return buf.Bytes()
}

// UnsignedID is the content hash over the canonical form, excluding the
// signature.
func UnsignedID(it *Item) ID {
	return ID(ethcrypto.Keccak256Hash(canonical(it, false)))
}

// SignedID is the content hash over the canonical form, including the
// signature.
func SignedID(it *Item) ID {
	return ID(ethcrypto.Keccak256Hash(canonical(it, true)))
}

// EncodeID renders an ID/Address in its wire (base64-url) form.
func EncodeID(id ID) string { return walletkey.Encode(id.Bytes()) }

// Signer recovers the signing address of a signed item.
func Signer(it *Item) (ID, error) {
	if len(it.Signature) == 0 {
		return ID{}, errors.New("bundle: item is unsigned")
	}
	return walletkey.RecoverAddress(UnsignedID(it), it.Signature)
}

// SignItem signs an item's unsigned canonical form with w, setting its
// Signature in place.
func SignItem(it *Item, w *walletkey.Wallet) error {
	if err := it.validateShape(); err != nil {
		return err
	}
	sig, err := w.Sign(UnsignedID(it))
	if err != nil {
		return err
	}
	it.Signature = sig
	return nil
}

// VerifyItem validates that Signature is a well-formed recoverable signature
// over the item's unsigned canonical form. It does not check the recovered
// address against any expected signer; that is the authority/relevance
// check the attestation verifier performs separately.
func VerifyItem(it *Item) bool {
	if it == nil || len(it.Signature) == 0 {
		return false
	}
	_, err := walletkey.RecoverAddress(UnsignedID(it), it.Signature)
	return err == nil
}

// Member reports whether id appears as the unsigned ID of it or of any item
// transitively nested in it.
func Member(id ID, it *Item) bool {
	if it == nil {
		return false
	}
	if UnsignedID(it) == id {
		return true
	}
	for _, v := range it.Map {
		if Member(id, v) {
			return true
		}
	}
	return false
}

// Print renders a short debug representation of an item tree, used by the
// device's logger rather than by any wire path.
func Print(it *Item) string {
	var buf bytes.Buffer
	printItem(&buf, it, 0)
	return buf.String()
}

func printItem(buf *bytes.Buffer, it *Item, depth int) {
	indent := bytes.Repeat([]byte("  "), depth)
	buf.Write(indent)
	if it == nil {
		buf.WriteString("<nil>\n")
		return
	}
	buf.WriteString("item id=")
	buf.WriteString(EncodeID(UnsignedID(it)))
	if len(it.Signature) > 0 {
		buf.WriteString(" signed")
	}
	buf.WriteByte('\n')
	for _, t := range it.Tags {
		buf.Write(indent)
		buf.WriteString("  tag ")
		buf.WriteString(t.Name)
		buf.WriteString("=")
		buf.WriteString(t.Value)
		buf.WriteByte('\n')
	}
	if it.Map != nil {
		keys := make([]string, 0, len(it.Map))
		for k := range it.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.Write(indent)
			buf.WriteString("  [" + k + "]\n")
			printItem(buf, it.Map[k], depth+2)
		}
	}
}
