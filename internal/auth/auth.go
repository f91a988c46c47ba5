// Package auth binds ledger identities to secp256k1 keys.
//
// An account address is the base58 encoding of the account's compressed
// public key. A caller authorizes a call by signing ir.AuthPayload with the
// account key; the host verifies the resulting entries before the call runs
// and exposes them to the contract as a ledger.Authorizer.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
)

// ErrBadSignature is returned when an auth entry does not verify.
var ErrBadSignature = errors.New("bad signature")

// Signer holds an account private key.
type Signer struct {
	key *secp256k1.PrivateKey
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Signer{key: key}, nil
}

// SignerFromHex loads a signer from a hex-encoded 32-byte private key.
func SignerFromHex(s string) (*Signer, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(b) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key: expected %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero or out of range")
	}
	return &Signer{key: key}, nil
}

// SignerFromSeed derives a deterministic signer from a seed string.
// Scenarios use it to name accounts without committing key material.
func SignerFromSeed(seed string) *Signer {
	sum := sha256.Sum256([]byte(seed))
	return &Signer{key: secp256k1.PrivKeyFromBytes(sum[:])}
}

// Address returns the account address of the signer.
func (s *Signer) Address() ir.Address {
	return ir.AccountAddress(s.key.PubKey().SerializeCompressed())
}

// PublicKeyHex returns the compressed public key in hex.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.key.PubKey().SerializeCompressed())
}

// PrivateKeyHex returns the private key in hex.
func (s *Signer) PrivateKeyHex() string {
	return hex.EncodeToString(s.key.Serialize())
}

// Sign produces an auth entry over a 32-byte payload.
func (s *Signer) Sign(payload []byte) ir.AuthEntry {
	sig := ecdsa.Sign(s.key, payload)
	return ir.AuthEntry{
		Address:   s.Address(),
		PublicKey: s.PublicKeyHex(),
		Signature: hex.EncodeToString(sig.Serialize()),
	}
}

// SignCall signs the auth payload of a call.
func (s *Signer) SignCall(flowToken string, contract ir.Address, function string, args ir.IRObject) (ir.AuthEntry, error) {
	payload, err := ir.AuthPayload(flowToken, contract, function, args)
	if err != nil {
		return ir.AuthEntry{}, err
	}
	return s.Sign(payload), nil
}

// Verify checks that entry carries a valid signature over payload by the
// key its address names.
func Verify(entry ir.AuthEntry, payload []byte) error {
	pubBytes, err := hex.DecodeString(entry.PublicKey)
	if err != nil {
		return fmt.Errorf("%s: public key: %w", entry.Address, ErrBadSignature)
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("%s: public key: %v: %w", entry.Address, err, ErrBadSignature)
	}
	if ir.AccountAddress(pub.SerializeCompressed()) != entry.Address {
		return fmt.Errorf("%s: public key does not match address: %w", entry.Address, ErrBadSignature)
	}

	sigBytes, err := hex.DecodeString(entry.Signature)
	if err != nil {
		return fmt.Errorf("%s: signature: %w", entry.Address, ErrBadSignature)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%s: signature: %v: %w", entry.Address, err, ErrBadSignature)
	}
	if !sig.Verify(payload, pub) {
		return fmt.Errorf("%s: %w", entry.Address, ErrBadSignature)
	}
	return nil
}

// SignatureAuthorizer authorizes the addresses whose entries verified
// against one call's payload.
type SignatureAuthorizer struct {
	verified map[ir.Address]bool
}

// NewSignatureAuthorizer verifies entries against payload. Entries that fail
// verification are dropped, so requiring their address later fails; the
// returned error list reports them for logging.
func NewSignatureAuthorizer(payload []byte, entries []ir.AuthEntry) (*SignatureAuthorizer, []error) {
	a := &SignatureAuthorizer{verified: make(map[ir.Address]bool, len(entries))}
	var rejected []error
	for _, e := range entries {
		if err := Verify(e, payload); err != nil {
			rejected = append(rejected, err)
			continue
		}
		a.verified[e.Address] = true
	}
	return a, rejected
}

// RequireAuth implements ledger.Authorizer.
func (a *SignatureAuthorizer) RequireAuth(_ context.Context, addr ir.Address) error {
	if a.verified[addr] {
		return nil
	}
	return fmt.Errorf("%s: %w", addr, ledger.ErrNotAuthorized)
}

// Len returns how many addresses were verified.
func (a *SignatureAuthorizer) Len() int {
	return len(a.verified)
}
