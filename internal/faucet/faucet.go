// Package faucet is the tap contract: a registered user periodically claims
// a fixed reward of one asset, paid from the contract's own balance, at
// most once per cooldown.
//
// The contract runs inside one host call. It reads and writes only through
// the Env it is given, so a failing call leaves nothing behind once the
// host rolls the call's storage back.
package faucet

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
)

// Storage keys. Configuration lives in the instance scope; the last-tap
// registry has one persistent entry per user.
var (
	keyAdmin     = []byte("Admin")
	keyToken     = []byte("Token")
	keyTapAmount = []byte("TapAmount")
	keyCooldown  = []byte("Cooldown")

	lastTapPrefix = []byte("LastTap/")
)

// AssetTransferrer moves an asset on the contract's behalf.
type AssetTransferrer interface {
	Transfer(ctx context.Context, asset, from, to ir.Address, amount *uint256.Int) error
}

// Env is what the host provides to one call.
type Env struct {
	// Contract is the address of the running contract instance.
	Contract ir.Address

	Instance   ledger.Scope
	Persistent ledger.Scope

	// Timestamp is the ledger time of the call in seconds.
	Timestamp uint64

	Auth   ledger.Authorizer
	Assets AssetTransferrer
}

// Claim describes a successful tap.
type Claim struct {
	User      ir.Address
	Asset     ir.Address
	Amount    *uint256.Int
	ClaimedAt uint64
}

// Contract runs faucet operations against one Env.
type Contract struct {
	env Env
}

// New binds the contract to env.
func New(env Env) *Contract {
	return &Contract{env: env}
}

// Initialize binds the configuration. It succeeds at most once per
// contract instance and moves no assets. The admin is recorded but gates
// nothing.
func (c *Contract) Initialize(ctx context.Context, admin, asset ir.Address, reward *uint256.Int, cooldown uint64) error {
	initialized, err := c.env.Instance.Has(ctx, keyAdmin)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if initialized {
		return ErrAlreadyInitialized
	}

	if err := admin.Validate(); err != nil {
		return InvalidArgument("admin", err)
	}
	if err := asset.Validate(); err != nil {
		return InvalidArgument("asset", err)
	}
	if reward == nil {
		return InvalidArgument("reward", errors.New("missing"))
	}
	if reward.Gt(ir.MaxU128()) {
		return InvalidArgument("reward", ir.ErrAmountOverflow)
	}
	// The transfer primitive takes a signed amount: a reward above i128 max
	// could never be paid out.
	if _, err := ir.NarrowI128(reward); err != nil {
		return newError(CodeInvalidReward, "reward exceeds transferable range", err)
	}

	adminBytes, err := admin.Bytes()
	if err != nil {
		return InvalidArgument("admin", err)
	}
	assetBytes, err := asset.Bytes()
	if err != nil {
		return InvalidArgument("asset", err)
	}
	rewardBytes, err := ir.U128Bytes(reward)
	if err != nil {
		return newError(CodeInvalidReward, "encode reward", err)
	}

	writes := []struct {
		key, value []byte
	}{
		{keyAdmin, adminBytes},
		{keyToken, assetBytes},
		{keyTapAmount, rewardBytes},
		{keyCooldown, u64Bytes(cooldown)},
	}
	for _, w := range writes {
		if err := c.env.Instance.Set(ctx, w.key, w.value); err != nil {
			return fmt.Errorf("write %s: %w", w.key, err)
		}
	}

	slog.Debug("faucet initialized",
		"contract", c.env.Contract,
		"asset", asset,
		"reward", reward.Dec(),
		"cooldown", cooldown,
	)
	return nil
}

// Tap pays the configured reward to user if the cooldown has elapsed.
//
// A user without a registry entry is always eligible, whatever the
// cooldown. After that the user becomes eligible again at exactly
// last+cooldown. The registry is
// updated before the transfer; a failed transfer fails the whole call.
func (c *Contract) Tap(ctx context.Context, user ir.Address) (Claim, error) {
	if err := c.env.Auth.RequireAuth(ctx, user); err != nil {
		return Claim{}, newError(CodeAuthorizationMissing, fmt.Sprintf("tap as %s", user), err)
	}

	cfg, err := c.Config(ctx)
	if err != nil {
		return Claim{}, err
	}

	last, tapped, err := c.lastTap(ctx, user)
	if err != nil {
		return Claim{}, err
	}

	now := c.env.Timestamp
	if tapped && !eligible(last, cfg.Cooldown, now) {
		return Claim{}, newError(CodeCooldownActive,
			fmt.Sprintf("last tap at %d, cooldown %ds, now %d", last, cfg.Cooldown, now), nil)
	}

	if err := c.env.Persistent.Set(ctx, lastTapKey(user), u64Bytes(now)); err != nil {
		return Claim{}, fmt.Errorf("write last tap: %w", err)
	}

	if err := c.env.Assets.Transfer(ctx, cfg.Asset, c.env.Contract, user, cfg.Reward); err != nil {
		return Claim{}, newError(CodeTransferFailed, fmt.Sprintf("pay %s to %s", cfg.Reward.Dec(), user), err)
	}

	slog.Debug("tap paid",
		"contract", c.env.Contract,
		"user", user,
		"amount", cfg.Reward.Dec(),
		"at", now,
	)
	return Claim{User: user, Asset: cfg.Asset, Amount: cfg.Reward, ClaimedAt: now}, nil
}

// Config returns the bound configuration, or ErrUninitialized.
func (c *Contract) Config(ctx context.Context) (ir.Config, error) {
	var cfg ir.Config

	adminBytes, ok, err := c.env.Instance.Get(ctx, keyAdmin)
	if err != nil {
		return cfg, fmt.Errorf("read admin: %w", err)
	}
	if !ok {
		return cfg, ErrUninitialized
	}
	assetBytes, err := c.mustGet(ctx, keyToken)
	if err != nil {
		return cfg, err
	}
	rewardBytes, err := c.mustGet(ctx, keyTapAmount)
	if err != nil {
		return cfg, err
	}
	cooldownBytes, err := c.mustGet(ctx, keyCooldown)
	if err != nil {
		return cfg, err
	}

	reward, err := ir.U128FromBytes(rewardBytes)
	if err != nil {
		return cfg, fmt.Errorf("decode reward: %w", err)
	}
	cooldown, err := u64FromBytes(cooldownBytes)
	if err != nil {
		return cfg, fmt.Errorf("decode cooldown: %w", err)
	}

	cfg.Admin = ir.AddressFromBytes(adminBytes)
	cfg.Asset = ir.AddressFromBytes(assetBytes)
	cfg.Reward = reward
	cfg.Cooldown = cooldown
	return cfg, nil
}

// LastTap returns the ledger time of user's last successful tap, 0 if the
// user never tapped.
func (c *Contract) LastTap(ctx context.Context, user ir.Address) (uint64, error) {
	last, _, err := c.lastTap(ctx, user)
	return last, err
}

func (c *Contract) lastTap(ctx context.Context, user ir.Address) (uint64, bool, error) {
	bz, ok, err := c.env.Persistent.Get(ctx, lastTapKey(user))
	if err != nil {
		return 0, false, fmt.Errorf("read last tap: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	v, err := u64FromBytes(bz)
	if err != nil {
		return 0, false, fmt.Errorf("decode last tap: %w", err)
	}
	return v, true, nil
}

// HasTapped reports whether user has a registry entry.
func (c *Contract) HasTapped(ctx context.Context, user ir.Address) (bool, error) {
	return c.env.Persistent.Has(ctx, lastTapKey(user))
}

func (c *Contract) mustGet(ctx context.Context, key []byte) ([]byte, error) {
	bz, ok, err := c.env.Instance.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("config entry %s missing", key)
	}
	return bz, nil
}

// eligible reports whether last+cooldown <= now. A sum that overflows u64
// is never reached.
func eligible(last, cooldown, now uint64) bool {
	next := last + cooldown
	if next < last {
		return false
	}
	return next <= now
}

func lastTapKey(user ir.Address) []byte {
	return append(append([]byte{}, lastTapPrefix...), user...)
}

func u64Bytes(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func u64FromBytes(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("u64: expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
