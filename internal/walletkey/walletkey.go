// Copyright 2025 Certen Protocol
//
// Wallet identity primitives for the PoDA device: address derivation and
// recoverable secp256k1 signing, built on go-ethereum's crypto package.
package walletkey

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Address is an opaque 32-byte identifier. It is deliberately NOT
// go-ethereum's 20-byte common.Address: in this protocol the same "Address"
// shape is also used for content-addressed item IDs (bundle.ID is a type
// alias for Address), so it keeps the full width of a Keccak256 digest
// rather than truncating to an account address.
type Address [32]byte

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// String renders the address the way the wire format expects it: opaque,
// base64-url encoded, no padding.
func (a Address) String() string { return Encode(a[:]) }

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// MarshalJSON encodes the address as its base64-url string form.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(Encode(a[:]))
}

// UnmarshalJSON decodes the address from its base64-url string form.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(s)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// Encode base64-url encodes arbitrary bytes (signer addresses, item IDs).
func Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeAddress parses a base64-url encoded 32-byte address.
func DecodeAddress(s string) (Address, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode address: %w", err)
	}
	if len(b) != 32 {
		return Address{}, fmt.Errorf("decode address: want 32 bytes, got %d", len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// AddressFromPub derives an Address from an ECDSA public key by taking the
// full Keccak256 digest of its uncompressed form.
func AddressFromPub(pub *ecdsa.PublicKey) Address {
	return Address(crypto.Keccak256Hash(crypto.FromECDSAPub(pub)))
}

// Wallet is the local node's signing identity.
type Wallet struct {
	priv *ecdsa.PrivateKey
	addr Address
}

// New generates a fresh wallet.
func New() (*Wallet, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate wallet key: %w", err)
	}
	return fromPriv(priv), nil
}

// FromHex loads a wallet from a hex-encoded secp256k1 private key.
func FromHex(hexKey string) (*Wallet, error) {
	priv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return fromPriv(priv), nil
}

func fromPriv(priv *ecdsa.PrivateKey) *Wallet {
	return &Wallet{priv: priv, addr: AddressFromPub(&priv.PublicKey)}
}

// Address returns the wallet's own address.
func (w *Wallet) Address() Address { return w.addr }

// Sign produces a recoverable secp256k1 signature over a 32-byte digest.
func (w *Wallet) Sign(hash [32]byte) ([]byte, error) {
	sig, err := crypto.Sign(hash[:], w.priv)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// RecoverAddress recovers the signer address from a digest and a recoverable
// signature. It fails closed: any malformed signature (wrong length, bad
// recovery id, out-of-range r/s) returns an error rather than guessing.
func RecoverAddress(hash [32]byte, sig []byte) (Address, error) {
	if len(sig) != 65 {
		return Address{}, fmt.Errorf("recover signer: signature must be 65 bytes, got %d", len(sig))
	}
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return AddressFromPub(pub), nil
}
