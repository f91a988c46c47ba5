// Package token implements the fungible asset book the faucet pays out from.
//
// Balances live in the persistent scope of the asset's own contract address,
// keyed by holder. Because the scope belongs to the enclosing call, a
// transfer made by a call that later fails is rolled back with it.
package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
)

var (
	// ErrInsufficientBalance is returned when the source cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for amounts outside the signed 128-bit range.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrBalanceOverflow is returned when a credit would push a balance past i128 max.
	ErrBalanceOverflow = errors.New("balance overflow")
)

var balancePrefix = []byte("Balance/")

// Client reads and moves balances of a single asset.
type Client struct {
	asset   ir.Address
	storage ledger.Scope
}

// New returns a client for asset backed by the asset's persistent scope.
func New(asset ir.Address, storage ledger.Scope) *Client {
	return &Client{asset: asset, storage: storage}
}

// Asset returns the asset address this client operates on.
func (c *Client) Asset() ir.Address {
	return c.asset
}

// Balance returns the balance of holder, zero if it never held the asset.
func (c *Client) Balance(ctx context.Context, holder ir.Address) (*uint256.Int, error) {
	bz, ok, err := c.storage.Get(ctx, balanceKey(holder))
	if err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", holder, err)
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return ir.U128FromBytes(bz)
}

// Mint credits amount to holder.
func (c *Client) Mint(ctx context.Context, to ir.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return c.credit(ctx, to, amount)
}

// Transfer moves amount from one holder to another. The amount is the
// signed 128-bit quantity of the transfer primitive: values above i128 max
// would be negative and are rejected.
func (c *Client) Transfer(ctx context.Context, from, to ir.Address, amount *uint256.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return fmt.Errorf("transfer recipient: %w", err)
	}

	balance, err := c.Balance(ctx, from)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%s holds %s, needs %s: %w", from, balance.Dec(), amount.Dec(), ErrInsufficientBalance)
	}
	if err := c.setBalance(ctx, from, new(uint256.Int).Sub(balance, amount)); err != nil {
		return err
	}
	_, err = c.credit(ctx, to, amount)
	return err
}

func (c *Client) credit(ctx context.Context, to ir.Address, amount *uint256.Int) (*uint256.Int, error) {
	balance, err := c.Balance(ctx, to)
	if err != nil {
		return nil, err
	}
	next := new(uint256.Int).Add(balance, amount)
	if next.Gt(ir.MaxI128()) {
		return nil, fmt.Errorf("credit %s to %s: %w", amount.Dec(), to, ErrBalanceOverflow)
	}
	if err := c.setBalance(ctx, to, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Client) setBalance(ctx context.Context, holder ir.Address, v *uint256.Int) error {
	bz, err := ir.U128Bytes(v)
	if err != nil {
		return err
	}
	if err := c.storage.Set(ctx, balanceKey(holder), bz); err != nil {
		return fmt.Errorf("write balance of %s: %w", holder, err)
	}
	return nil
}

func checkAmount(amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("nil amount: %w", ErrInvalidAmount)
	}
	if _, err := ir.NarrowI128(amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return nil
}

func balanceKey(holder ir.Address) []byte {
	return append(append([]byte{}, balancePrefix...), holder...)
}
