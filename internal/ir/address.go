package ir

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Address lengths once base58-decoded.
const (
	// AccountAddressLen is a compressed secp256k1 public key.
	AccountAddressLen = 33

	// ContractAddressLen is a domain-separated SHA-256 digest.
	ContractAddressLen = 32
)

// Address identifies an account or a contract on the ledger.
type Address string

// AccountAddress encodes a compressed public key as an account address.
func AccountAddress(compressedPubKey []byte) Address {
	return AddressFromBytes(compressedPubKey)
}

// AddressFromBytes encodes raw address bytes, as returned by Bytes.
func AddressFromBytes(b []byte) Address {
	return Address(base58.Encode(b))
}

// ContractAddress derives the address of the contract instance with the
// given name. The same name always yields the same address.
func ContractAddress(name string) Address {
	return Address(base58.Encode(digestWithDomain(DomainContract, []byte(name))))
}

// ParseAddress validates s and returns it as an Address.
func ParseAddress(s string) (Address, error) {
	a := Address(s)
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

// Bytes returns the decoded address.
func (a Address) Bytes() ([]byte, error) {
	if a == "" {
		return nil, fmt.Errorf("empty address")
	}
	b, err := base58.Decode(string(a))
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", string(a), err)
	}
	return b, nil
}

// Validate checks that a decodes to an account or contract address.
func (a Address) Validate() error {
	b, err := a.Bytes()
	if err != nil {
		return err
	}
	switch len(b) {
	case AccountAddressLen, ContractAddressLen:
		return nil
	default:
		return fmt.Errorf("address %q: invalid length %d", string(a), len(b))
	}
}

// IsContract reports whether a is a contract address.
func (a Address) IsContract() bool {
	b, err := a.Bytes()
	return err == nil && len(b) == ContractAddressLen
}

func (a Address) String() string {
	return string(a)
}
