package faucet

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
	"github.com/roach88/tapgame/internal/testutil"
	"github.com/roach88/tapgame/internal/token"
)

var (
	contractAddr = ir.ContractAddress("faucet")
	assetAddr    = ir.ContractAddress("asset")
	adminAddr    = ir.ContractAddress("admin")
	alice        = ir.ContractAddress("alice")
	bob          = ir.ContractAddress("bob")
)

// bank pays out of a single token book.
type bank struct {
	book *token.Client
}

func (b *bank) Transfer(ctx context.Context, asset, from, to ir.Address, amount *uint256.Int) error {
	if asset != b.book.Asset() {
		return errors.New("unknown asset")
	}
	return b.book.Transfer(ctx, from, to, amount)
}

type fixture struct {
	instance   *testutil.MemoryScope
	persistent *testutil.MemoryScope
	book       *token.Client
	env        Env
}

func newFixture(t *testing.T, funded uint64) *fixture {
	t.Helper()
	f := &fixture{
		instance:   testutil.NewMemoryScope(),
		persistent: testutil.NewMemoryScope(),
	}
	f.book = token.New(assetAddr, testutil.NewMemoryScope())
	if funded > 0 {
		_, err := f.book.Mint(context.Background(), contractAddr, uint256.NewInt(funded))
		require.NoError(t, err)
	}
	f.env = Env{
		Contract:   contractAddr,
		Instance:   f.instance,
		Persistent: f.persistent,
		Auth:       ledger.Allow{alice, bob},
		Assets:     &bank{book: f.book},
	}
	return f
}

func (f *fixture) at(ts uint64) *Contract {
	env := f.env
	env.Timestamp = ts
	return New(env)
}

func (f *fixture) balance(t *testing.T, addr ir.Address) uint64 {
	t.Helper()
	b, err := f.book.Balance(context.Background(), addr)
	require.NoError(t, err)
	return b.Uint64()
}

func initialized(t *testing.T, funded, reward, cooldown uint64) *fixture {
	t.Helper()
	f := newFixture(t, funded)
	require.NoError(t, f.at(0).Initialize(context.Background(), adminAddr, assetAddr, uint256.NewInt(reward), cooldown))
	return f
}

func TestInitializeStoresConfig(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 0, 100, 3600)

	cfg, err := f.at(0).Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, adminAddr, cfg.Admin)
	assert.Equal(t, assetAddr, cfg.Asset)
	assert.Equal(t, uint64(100), cfg.Reward.Uint64())
	assert.Equal(t, uint64(3600), cfg.Cooldown)
	assert.Equal(t, 4, f.instance.Len())
	assert.Equal(t, 0, f.persistent.Len())
}

func TestInitializeTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 0, 100, 3600)
	before := f.instance.Snapshot()

	err := f.at(10).Initialize(ctx, bob, bob, uint256.NewInt(1), 1)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, CodeAlreadyInitialized, CodeOf(err))
	assert.Equal(t, before, f.instance.Snapshot())
}

func TestInitializeRejectsRewardAboveI128(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	reward := new(uint256.Int).AddUint64(ir.MaxI128(), 1)
	err := f.at(0).Initialize(ctx, adminAddr, assetAddr, reward, 10)
	require.ErrorIs(t, err, ErrInvalidReward)
	assert.Equal(t, 0, f.instance.Writes())

	// The guard stays open: a valid initialize still succeeds.
	require.NoError(t, f.at(0).Initialize(ctx, adminAddr, assetAddr, ir.MaxI128(), 10))
}

func TestInitializeRejectsMalformedArguments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	err := f.at(0).Initialize(ctx, "", assetAddr, uint256.NewInt(1), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = f.at(0).Initialize(ctx, adminAddr, "bad0", uint256.NewInt(1), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = f.at(0).Initialize(ctx, adminAddr, assetAddr, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = f.at(0).Initialize(ctx, adminAddr, assetAddr, new(uint256.Int).AddUint64(ir.MaxU128(), 1), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, 0, f.instance.Writes())
}

func TestTapUninitialized(t *testing.T) {
	f := newFixture(t, 1000)
	_, err := f.at(0).Tap(context.Background(), alice)
	require.ErrorIs(t, err, ErrUninitialized)
	assert.Equal(t, 0, f.persistent.Writes())
}

func TestTapAuthorizationCheckedFirst(t *testing.T) {
	f := newFixture(t, 1000)
	carol := ir.ContractAddress("carol")

	// Not initialized either: authorization is reported first.
	_, err := f.at(0).Tap(context.Background(), carol)
	require.ErrorIs(t, err, ErrAuthorizationMissing)
	assert.ErrorIs(t, err, ledger.ErrNotAuthorized)
}

func TestTapAuthorizationGate(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 3600)
	carol := ir.ContractAddress("carol")

	_, err := f.at(5000).Tap(ctx, carol)
	require.ErrorIs(t, err, ErrAuthorizationMissing)
	assert.Equal(t, 0, f.persistent.Writes())
	assert.Equal(t, uint64(1000), f.balance(t, contractAddr))
	assert.Equal(t, uint64(0), f.balance(t, carol))
}

func TestTapAuthorizationGateDuringCooldown(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 3600)

	_, err := f.at(0).Tap(ctx, alice)
	require.NoError(t, err)
	before := f.persistent.Snapshot()

	unauthorized := f.env
	unauthorized.Auth = ledger.Allow{}
	unauthorized.Timestamp = 10
	_, err = New(unauthorized).Tap(ctx, alice)
	require.ErrorIs(t, err, ErrAuthorizationMissing)
	assert.NotErrorIs(t, err, ErrCooldownActive)

	assert.Equal(t, before, f.persistent.Snapshot())
	assert.Equal(t, uint64(900), f.balance(t, contractAddr))
	assert.Equal(t, uint64(100), f.balance(t, alice))
}

func TestFirstTapAlwaysEligible(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, math.MaxUint64)

	claim, err := f.at(math.MaxUint64).Tap(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, claim.User)
	assert.Equal(t, uint64(100), claim.Amount.Uint64())
	assert.Equal(t, uint64(math.MaxUint64), claim.ClaimedAt)

	last, err := f.at(0).LastTap(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), last)
}

func TestFirstTapEligibleBeforeCooldownElapses(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 3600)

	_, err := f.at(5).Tap(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), f.balance(t, alice))
}

func TestFirstTapAtLedgerTimeZero(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 0)

	_, err := f.at(0).Tap(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), f.balance(t, alice))

	tapped, err := f.at(0).HasTapped(ctx, alice)
	require.NoError(t, err)
	assert.True(t, tapped)
}

func TestCooldownBoundaryInclusive(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 3600)

	_, err := f.at(1000).Tap(ctx, alice)
	require.NoError(t, err)

	_, err = f.at(4599).Tap(ctx, alice)
	require.ErrorIs(t, err, ErrCooldownActive)

	_, err = f.at(4600).Tap(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), f.balance(t, alice))
}

func TestCooldownFailureLeavesNoMutation(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 3600)

	_, err := f.at(0).Tap(ctx, alice)
	require.NoError(t, err)
	before := f.persistent.Snapshot()

	_, err = f.at(1800).Tap(ctx, alice)
	require.ErrorIs(t, err, ErrCooldownActive)
	assert.Equal(t, before, f.persistent.Snapshot())
	assert.Equal(t, uint64(900), f.balance(t, contractAddr))
}

func TestCooldownIsPerUser(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 3600)

	_, err := f.at(0).Tap(ctx, alice)
	require.NoError(t, err)
	_, err = f.at(10).Tap(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, f.persistent.Len())
}

func TestCooldownOverflowNeverEligible(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, math.MaxUint64-10)

	_, err := f.at(100).Tap(ctx, alice)
	require.NoError(t, err)

	_, err = f.at(math.MaxUint64).Tap(ctx, alice)
	require.ErrorIs(t, err, ErrCooldownActive)
}

func TestTapTransferFailure(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 50, 100, 3600)

	_, err := f.at(0).Tap(ctx, alice)
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
	assert.Equal(t, CodeTransferFailed, CodeOf(err))

	// The registry write precedes the transfer; the host discards it with
	// the rest of the failed call.
	assert.Equal(t, 1, f.persistent.Writes())
	assert.Equal(t, uint64(50), f.balance(t, contractAddr))
}

func TestScenarioRewardAndCooldown(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, 1000, 100, 3600)

	_, err := f.at(0).Tap(ctx, alice)
	require.NoError(t, err)

	_, err = f.at(1800).Tap(ctx, alice)
	require.ErrorIs(t, err, ErrCooldownActive)

	_, err = f.at(3600).Tap(ctx, alice)
	require.NoError(t, err)

	assert.Equal(t, uint64(200), f.balance(t, alice))
	assert.Equal(t, uint64(800), f.balance(t, contractAddr))
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name                string
		last, cooldown, now uint64
		want                bool
	}{
		{"never tapped", 0, 0, 0, true},
		{"before boundary", 10, 5, 14, false},
		{"at boundary", 10, 5, 15, true},
		{"after boundary", 10, 5, 100, true},
		{"overflow", 2, math.MaxUint64, math.MaxUint64, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eligible(tt.last, tt.cooldown, tt.now))
		})
	}
}

func TestStorageFailurePropagates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.instance.FailSet = true

	err := f.at(0).Initialize(ctx, adminAddr, assetAddr, uint256.NewInt(1), 1)
	require.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, Code(""), CodeOf(err))
}

func TestErrorMatchesByCode(t *testing.T) {
	err := newError(CodeCooldownActive, "custom message", nil)
	assert.ErrorIs(t, err, ErrCooldownActive)
	assert.NotErrorIs(t, err, ErrTransferFailed)
	assert.Contains(t, err.Error(), "CooldownActive")
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
