package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tapgame/internal/faucet"
	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
	"github.com/roach88/tapgame/internal/store"
	"github.com/roach88/tapgame/internal/token"
)

var errWrongSpender = errors.New("contract may only spend its own balance")

func knownFunction(fn string) bool {
	switch fn {
	case ir.FuncInitialize, ir.FuncTap, ir.FuncMint:
		return true
	}
	return false
}

// dispatch runs inv against the contract it names, inside tx.
//
// initialize and tap address a faucet instance; mint addresses an asset
// contract. The function decides which kind of contract the address is
// treated as.
func (e *Engine) dispatch(ctx context.Context, tx *store.Tx, inv ir.Invocation, authz ledger.Authorizer) (ir.IRObject, error) {
	env := faucet.Env{
		Contract:   inv.Contract,
		Instance:   tx.Scope(inv.Contract, ledger.Instance),
		Persistent: tx.Scope(inv.Contract, ledger.Persistent),
		Timestamp:  inv.LedgerTime,
		Auth:       authz,
		Assets:     &assetBank{tx: tx, spender: inv.Contract},
	}

	switch inv.Function {
	case ir.FuncInitialize:
		return initialize(ctx, faucet.New(env), inv.Args)
	case ir.FuncTap:
		return tap(ctx, faucet.New(env), inv.Args)
	case ir.FuncMint:
		return mint(ctx, tx, inv.Contract, inv.Args)
	default:
		return nil, newUnknownFunctionError(inv.FlowToken, inv.Function)
	}
}

func initialize(ctx context.Context, c *faucet.Contract, args ir.IRObject) (ir.IRObject, error) {
	if err := checkArgs(args, "admin", "asset", "reward", "cooldown"); err != nil {
		return nil, err
	}
	admin, err := addressArg(args, "admin")
	if err != nil {
		return nil, err
	}
	asset, err := addressArg(args, "asset")
	if err != nil {
		return nil, err
	}
	reward, err := amountArg(args, "reward")
	if err != nil {
		return nil, err
	}
	cooldown, err := u64Arg(args, "cooldown")
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(ctx, admin, asset, reward, cooldown); err != nil {
		return nil, err
	}
	return ir.IRObject{}, nil
}

func tap(ctx context.Context, c *faucet.Contract, args ir.IRObject) (ir.IRObject, error) {
	if err := checkArgs(args, "user"); err != nil {
		return nil, err
	}
	user, err := addressArg(args, "user")
	if err != nil {
		return nil, err
	}
	claim, err := c.Tap(ctx, user)
	if err != nil {
		return nil, err
	}
	return ir.NewIRObject(
		ir.O("user", ir.IRString(claim.User)),
		ir.O("amount", ir.IRString(claim.Amount.Dec())),
		ir.O("claimed_at", u64Value(claim.ClaimedAt)),
	), nil
}

// mint credits an asset balance. It is the host's funding operation and
// requires no authorization.
func mint(ctx context.Context, tx *store.Tx, asset ir.Address, args ir.IRObject) (ir.IRObject, error) {
	if err := checkArgs(args, "to", "amount"); err != nil {
		return nil, err
	}
	to, err := addressArg(args, "to")
	if err != nil {
		return nil, err
	}
	amount, err := amountArg(args, "amount")
	if err != nil {
		return nil, err
	}

	book := token.New(asset, tx.Scope(asset, ledger.Persistent))
	balance, err := book.Mint(ctx, to, amount)
	if errors.Is(err, token.ErrInvalidAmount) || errors.Is(err, token.ErrBalanceOverflow) {
		return nil, faucet.InvalidArgument("amount", err)
	}
	if err != nil {
		return nil, err
	}
	return ir.NewIRObject(
		ir.O("to", ir.IRString(to)),
		ir.O("balance", ir.IRString(balance.Dec())),
	), nil
}

// assetBank is the asset-transfer primitive handed to a running contract.
// Balances are read and written in the same transaction as the call.
type assetBank struct {
	tx      *store.Tx
	spender ir.Address
}

// Transfer implements faucet.AssetTransferrer.
func (b *assetBank) Transfer(ctx context.Context, asset, from, to ir.Address, amount *uint256.Int) error {
	if from != b.spender {
		return fmt.Errorf("%s spending for %s: %w", b.spender, from, errWrongSpender)
	}
	if err := asset.Validate(); err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	return token.New(asset, b.tx.Scope(asset, ledger.Persistent)).Transfer(ctx, from, to, amount)
}
