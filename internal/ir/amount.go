package ir

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrAmountOverflow is returned when an amount does not fit the target range.
var ErrAmountOverflow = errors.New("amount out of range")

var (
	maxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
	maxI128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 127), uint256.NewInt(1))
)

// MaxU128 returns 2^128-1.
func MaxU128() *uint256.Int {
	return maxU128.Clone()
}

// MaxI128 returns 2^127-1, the largest amount the asset-transfer primitive accepts.
func MaxI128() *uint256.Int {
	return maxI128.Clone()
}

// ParseU128 parses a base-10 unsigned amount that must fit in 128 bits.
func ParseU128(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if v.Gt(maxU128) {
		return nil, fmt.Errorf("parse amount %q: %w (max %s)", s, ErrAmountOverflow, maxU128.Dec())
	}
	return v, nil
}

// NarrowI128 checks that an unsigned amount is representable as a signed
// 128-bit quantity. Values above 2^127-1 are rejected rather than wrapped.
func NarrowI128(v *uint256.Int) (*uint256.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("nil amount")
	}
	if v.Gt(maxI128) {
		return nil, fmt.Errorf("%s exceeds i128 max: %w", v.Dec(), ErrAmountOverflow)
	}
	return v.Clone(), nil
}

// U128Bytes encodes v as 16 big-endian bytes.
func U128Bytes(v *uint256.Int) ([]byte, error) {
	if v.Gt(maxU128) {
		return nil, ErrAmountOverflow
	}
	b := v.Bytes32()
	return b[16:], nil
}

// U128FromBytes decodes 16 big-endian bytes.
func U128FromBytes(b []byte) (*uint256.Int, error) {
	if len(b) != 16 {
		return nil, fmt.Errorf("u128: expected 16 bytes, got %d", len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}
