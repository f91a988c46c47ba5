package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapgame/internal/auth"
	"github.com/roach88/tapgame/internal/config"
	"github.com/roach88/tapgame/internal/ir"
)

func TestKeygenSeedIsDeterministic(t *testing.T) {
	opts := RootOptions{Format: "json"}

	out1, err := runCommand(t, NewKeygenCommand, opts, "--seed", "alice")
	require.NoError(t, err)
	out2, err := runCommand(t, NewKeygenCommand, opts, "--seed", "alice")
	require.NoError(t, err)
	assert.Equal(t, out1, out2)

	var key KeyView
	resp := decodeResponse(t, out1, &key)
	assert.Equal(t, "ok", resp.Status)

	want := auth.SignerFromSeed("alice")
	assert.Equal(t, string(want.Address()), key.Address)
	assert.Equal(t, want.PublicKeyHex(), key.PublicKey)
	assert.Equal(t, want.PrivateKeyHex(), key.PrivateKey)

	s, err := auth.SignerFromHex(key.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, want.Address(), s.Address())
}

func TestKeygenRandom(t *testing.T) {
	opts := RootOptions{Format: "json"}

	out1, err := runCommand(t, NewKeygenCommand, opts)
	require.NoError(t, err)
	out2, err := runCommand(t, NewKeygenCommand, opts)
	require.NoError(t, err)

	var k1, k2 KeyView
	decodeResponse(t, out1, &k1)
	decodeResponse(t, out2, &k2)
	assert.NotEqual(t, k1.Address, k2.Address)
	_, err = ir.ParseAddress(k1.Address)
	assert.NoError(t, err)
}

func TestInitRequiresAdminOrKey(t *testing.T) {
	_, err := runCommand(t, NewInitCommand, RootOptions{Format: "text", Database: tempDB(t)},
		"--reward", "100", "--cooldown", "3600")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--admin or --key")
}

func TestInitRequiredFlags(t *testing.T) {
	_, err := runCommand(t, NewInitCommand, RootOptions{Format: "text", Database: tempDB(t)},
		"--admin", string(auth.SignerFromSeed("admin").Address()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestInitInvalidFlags(t *testing.T) {
	admin := string(auth.SignerFromSeed("admin").Address())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad admin", []string{"--admin", "not-an-address", "--reward", "1", "--cooldown", "1"}, "invalid --admin"},
		{"negative reward", []string{"--admin", admin, "--reward", "-1", "--cooldown", "1"}, "invalid --reward"},
		{"huge reward", []string{"--admin", admin, "--reward", "340282366920938463463374607431768211456", "--cooldown", "1"}, "invalid --reward"},
		{"bad cooldown", []string{"--admin", admin, "--reward", "1", "--cooldown", "1h"}, "invalid --cooldown"},
		{"bad key", []string{"--key", "zz", "--reward", "1", "--cooldown", "1"}, "invalid --key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewInitCommand, RootOptions{Format: "text", Database: tempDB(t)}, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInitTwiceFails(t *testing.T) {
	dbPath := tempDB(t)
	admin := fundedFaucet(t, dbPath, "1000", "100", "3600")

	out, err := runCommand(t, NewInitCommand, RootOptions{Format: "json", Database: dbPath, LedgerTime: "10"},
		"--key", admin.PrivateKeyHex(), "--reward", "5", "--cooldown", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AlreadyInitialized", resp.Error.Code)

	out, err = runCommand(t, NewShowCommand, RootOptions{Format: "json", Database: dbPath})
	require.NoError(t, err)
	var fv FaucetView
	decodeResponse(t, out, &fv)
	assert.Equal(t, "100", fv.Reward)
	assert.Equal(t, uint64(3600), fv.Cooldown)
}

func TestInitWithAdminAddressOnly(t *testing.T) {
	dbPath := tempDB(t)
	admin := auth.SignerFromSeed("admin")

	out, err := runCommand(t, NewInitCommand, RootOptions{Format: "json", Database: dbPath, LedgerTime: "0"},
		"--admin", string(admin.Address()), "--reward", "100", "--cooldown", "60")
	require.NoError(t, err)

	var view CallView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ir.FuncInitialize, view.Function)
	assert.Equal(t, string(config.Default().ContractAddress()), view.Contract)
	assert.NotEmpty(t, view.ReceiptID)

	out, err = runCommand(t, NewShowCommand, RootOptions{Format: "json", Database: dbPath})
	require.NoError(t, err)
	var fv FaucetView
	decodeResponse(t, out, &fv)
	assert.True(t, fv.Initialized)
	assert.Equal(t, string(admin.Address()), fv.Admin)
	assert.Equal(t, string(config.Default().AssetAddress()), fv.Asset)
}

func TestFundDefaultsToFaucet(t *testing.T) {
	dbPath := tempDB(t)

	out, err := runCommand(t, NewFundCommand, RootOptions{Format: "json", Database: dbPath}, "--amount", "750")
	require.NoError(t, err)

	var view CallView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ir.FuncMint, view.Function)
	assert.Equal(t, ir.OutcomeSuccess, view.Outcome)
	assert.Equal(t, int64(1), view.Seq)
	assert.Equal(t, string(config.Default().AssetAddress()), view.Contract)
	assert.Equal(t, string(config.Default().ContractAddress()), view.Result["to"])
	assert.Equal(t, "750", view.Result["balance"])
}

func TestFundInvalidAmount(t *testing.T) {
	for _, amount := range []string{"", "-5", "1.5", "abc"} {
		t.Run(amount, func(t *testing.T) {
			_, err := runCommand(t, NewFundCommand, RootOptions{Format: "text", Database: tempDB(t)}, "--amount", amount)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestTapRequiresKeyOrUser(t *testing.T) {
	_, err := runCommand(t, NewTapCommand, RootOptions{Format: "text", Database: tempDB(t)})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--key or --user")
}

func TestTapCooldown(t *testing.T) {
	dbPath := tempDB(t)
	fundedFaucet(t, dbPath, "1000", "100", "3600")
	alice := auth.SignerFromSeed("alice")

	tap := func(at string) (string, error) {
		return runCommand(t, NewTapCommand, RootOptions{Format: "text", Database: dbPath, LedgerTime: at},
			"--key", alice.PrivateKeyHex())
	}

	out, err := tap("100")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ tap (seq 3)")
	assert.Contains(t, out, "amount=100")
	assert.Contains(t, out, "claimed_at=100")

	out, err = tap("3699")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [CooldownActive]")

	out, err = tap("3700")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ tap (seq 5)")

	out, err = runCommand(t, NewShowCommand, RootOptions{Format: "json", Database: dbPath},
		"--user", string(alice.Address()))
	require.NoError(t, err)
	var fv FaucetView
	decodeResponse(t, out, &fv)
	assert.Equal(t, "800", fv.Balance)
	require.NotNil(t, fv.User)
	assert.Equal(t, "200", fv.User.Balance)
	assert.True(t, fv.User.Tapped)
	assert.Equal(t, uint64(3700), fv.User.LastTap)
	require.NotNil(t, fv.User.NextTap)
	assert.Equal(t, uint64(7300), *fv.User.NextTap)
}

func TestTapWithoutSignature(t *testing.T) {
	dbPath := tempDB(t)
	fundedFaucet(t, dbPath, "1000", "100", "60")
	alice := auth.SignerFromSeed("alice")
	mallory := auth.SignerFromSeed("mallory")

	out, err := runCommand(t, NewTapCommand, RootOptions{Format: "json", Database: dbPath, LedgerTime: "0"},
		"--key", mallory.PrivateKeyHex(), "--user", string(alice.Address()))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AuthorizationMissing", resp.Error.Code)

	out, err = runCommand(t, NewShowCommand, RootOptions{Format: "json", Database: dbPath},
		"--user", string(alice.Address()))
	require.NoError(t, err)
	var fv FaucetView
	decodeResponse(t, out, &fv)
	assert.Equal(t, "1000", fv.Balance)
	assert.Equal(t, "0", fv.User.Balance)
	assert.False(t, fv.User.Tapped)
}

func TestTapUninitialized(t *testing.T) {
	alice := auth.SignerFromSeed("alice")
	out, err := runCommand(t, NewTapCommand, RootOptions{Format: "text", Database: tempDB(t)},
		"--key", alice.PrivateKeyHex())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [Uninitialized]")
}

func TestTapUnfundedFaucet(t *testing.T) {
	dbPath := tempDB(t)
	admin := auth.SignerFromSeed("admin")
	_, err := runCommand(t, NewInitCommand, RootOptions{Format: "text", Database: dbPath, LedgerTime: "0"},
		"--key", admin.PrivateKeyHex(), "--reward", "100", "--cooldown", "60")
	require.NoError(t, err)

	alice := auth.SignerFromSeed("alice")
	out, err := runCommand(t, NewTapCommand, RootOptions{Format: "text", Database: dbPath, LedgerTime: "0"},
		"--key", alice.PrivateKeyHex())
	require.Error(t, err)
	assert.Contains(t, out, "Error [TransferFailed]")

	out, err = runCommand(t, NewShowCommand, RootOptions{Format: "json", Database: dbPath},
		"--user", string(alice.Address()))
	require.NoError(t, err)
	var fv FaucetView
	decodeResponse(t, out, &fv)
	assert.False(t, fv.User.Tapped)
}

func TestShowUninitialized(t *testing.T) {
	dbPath := tempDB(t)
	_, err := runCommand(t, NewFundCommand, RootOptions{Format: "text", Database: dbPath}, "--amount", "5")
	require.NoError(t, err)

	out, err := runCommand(t, NewShowCommand, RootOptions{Format: "text", Database: dbPath})
	require.NoError(t, err)
	assert.Contains(t, out, "(not initialized)")
	assert.Contains(t, out, "Balance:  5")
}

func TestShowText(t *testing.T) {
	dbPath := tempDB(t)
	admin := fundedFaucet(t, dbPath, "1000", "100", "3600")

	out, err := runCommand(t, NewShowCommand, RootOptions{Format: "text", Database: dbPath},
		"--user", string(admin.Address()))
	require.NoError(t, err)
	assert.Contains(t, out, "Admin:    "+string(admin.Address()))
	assert.Contains(t, out, "Reward:   100")
	assert.Contains(t, out, "Cooldown: 3600s")
	assert.Contains(t, out, "Last tap: never")
}

func TestShowJSONKeepsZeroCooldownAndLastTap(t *testing.T) {
	dbPath := tempDB(t)
	fundedFaucet(t, dbPath, "1000", "100", "0")
	alice := auth.SignerFromSeed("alice")

	_, err := runCommand(t, NewTapCommand, RootOptions{Format: "text", Database: dbPath, LedgerTime: "0"},
		"--key", alice.PrivateKeyHex())
	require.NoError(t, err)

	out, err := runCommand(t, NewShowCommand, RootOptions{Format: "json", Database: dbPath},
		"--user", string(alice.Address()))
	require.NoError(t, err)

	var raw map[string]any
	decodeResponse(t, out, &raw)
	assert.Contains(t, raw, "cooldown")
	assert.EqualValues(t, 0, raw["cooldown"])

	user, ok := raw["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, user["tapped"])
	assert.Contains(t, user, "last_tap")
	assert.EqualValues(t, 0, user["last_tap"])
}

func TestShowMissingDatabase(t *testing.T) {
	_, err := runCommand(t, NewShowCommand, RootOptions{Format: "text", Database: tempDB(t)})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestCustomContractName(t *testing.T) {
	dbPath := tempDB(t)
	opts := RootOptions{Format: "json", Database: dbPath, Contract: "other-faucet"}

	out, err := runCommand(t, NewFundCommand, opts, "--amount", "10")
	require.NoError(t, err)
	var view CallView
	decodeResponse(t, out, &view)
	assert.Equal(t, string(ir.ContractAddress("other-faucet")), view.Result["to"])

	out, err = runCommand(t, NewShowCommand, RootOptions{Format: "json", Database: dbPath})
	require.NoError(t, err)
	var fv FaucetView
	decodeResponse(t, out, &fv)
	assert.Equal(t, "0", fv.Balance)
}
