// Package ledger defines the host collaborators a contract runs against:
// durable scoped storage, the caller authorization primitive and the ledger
// clock. The engine provides the real implementations; tests substitute fakes.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tapgame/internal/ir"
)

// Durability selects one of the two storage partitions of a contract.
type Durability string

const (
	// Instance holds small, fixed configuration.
	Instance Durability = "instance"

	// Persistent holds data expected to grow, such as per-user records.
	Persistent Durability = "persistent"
)

// Valid reports whether d names a known partition.
func (d Durability) Valid() bool {
	return d == Instance || d == Persistent
}

// Scope is one storage partition of one contract, viewed inside the
// enclosing call. Writes become durable only if the call commits.
//
// There is no Delete: entries, once written, are only ever overwritten.
type Scope interface {
	Has(ctx context.Context, key []byte) (bool, error)
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)
	Set(ctx context.Context, key, value []byte) error
}

// ErrNotAuthorized is returned by an Authorizer when the invoking principal
// cannot act as the requested address.
var ErrNotAuthorized = errors.New("not authorized")

// Authorizer enforces that the caller is authorized to act as an address.
type Authorizer interface {
	RequireAuth(ctx context.Context, addr ir.Address) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, addr ir.Address) error

// RequireAuth implements Authorizer.
func (f AuthorizerFunc) RequireAuth(ctx context.Context, addr ir.Address) error {
	return f(ctx, addr)
}

// Allow is an Authorizer that accepts exactly the given addresses.
type Allow []ir.Address

// RequireAuth implements Authorizer.
func (a Allow) RequireAuth(_ context.Context, addr ir.Address) error {
	for _, allowed := range a {
		if allowed == addr {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", addr, ErrNotAuthorized)
}
