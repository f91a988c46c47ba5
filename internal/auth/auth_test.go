package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
)

func testPayload(t *testing.T) []byte {
	t.Helper()
	p, err := ir.AuthPayload("flow-1", ir.ContractAddress("faucet"), ir.FuncTap,
		ir.NewIRObject(ir.O("user", ir.IRString("x"))))
	require.NoError(t, err)
	return p
}

func TestSignerAddressIsAccount(t *testing.T) {
	s, err := GenerateSigner()
	require.NoError(t, err)

	addr := s.Address()
	require.NoError(t, addr.Validate())
	assert.False(t, addr.IsContract())

	b, err := addr.Bytes()
	require.NoError(t, err)
	assert.Len(t, b, ir.AccountAddressLen)
}

func TestSignerFromSeedDeterministic(t *testing.T) {
	a := SignerFromSeed("alice")
	b := SignerFromSeed("alice")
	c := SignerFromSeed("bob")
	assert.Equal(t, a.Address(), b.Address())
	assert.NotEqual(t, a.Address(), c.Address())
}

func TestSignerHexRoundTrip(t *testing.T) {
	s := SignerFromSeed("carol")
	loaded, err := SignerFromHex(s.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, s.Address(), loaded.Address())
}

func TestSignerFromHexRejectsBadInput(t *testing.T) {
	_, err := SignerFromHex("zz")
	assert.Error(t, err)

	_, err = SignerFromHex("abcd")
	assert.Error(t, err)

	_, err = SignerFromHex("0000000000000000000000000000000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	s := SignerFromSeed("alice")
	payload := testPayload(t)

	entry := s.Sign(payload)
	assert.Equal(t, s.Address(), entry.Address)
	require.NoError(t, Verify(entry, payload))

	other := make([]byte, len(payload))
	copy(other, payload)
	other[0] ^= 0xff
	assert.ErrorIs(t, Verify(entry, other), ErrBadSignature)
}

func TestVerifyRejectsForeignAddress(t *testing.T) {
	alice := SignerFromSeed("alice")
	bob := SignerFromSeed("bob")
	payload := testPayload(t)

	entry := bob.Sign(payload)
	entry.Address = alice.Address()
	assert.ErrorIs(t, Verify(entry, payload), ErrBadSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := SignerFromSeed("alice")
	payload := testPayload(t)

	entry := s.Sign(payload)
	entry.Signature = "00"
	assert.ErrorIs(t, Verify(entry, payload), ErrBadSignature)

	entry = s.Sign(payload)
	entry.PublicKey = "not-hex"
	assert.ErrorIs(t, Verify(entry, payload), ErrBadSignature)
}

func TestSignatureAuthorizer(t *testing.T) {
	ctx := context.Background()
	alice := SignerFromSeed("alice")
	bob := SignerFromSeed("bob")
	payload := testPayload(t)

	forged := bob.Sign(payload)
	forged.Address = alice.Address()

	authz, rejected := NewSignatureAuthorizer(payload, []ir.AuthEntry{bob.Sign(payload), forged})
	assert.Len(t, rejected, 1)
	assert.Equal(t, 1, authz.Len())

	require.NoError(t, authz.RequireAuth(ctx, bob.Address()))
	assert.ErrorIs(t, authz.RequireAuth(ctx, alice.Address()), ledger.ErrNotAuthorized)
}

func TestSignCallMatchesPayload(t *testing.T) {
	s := SignerFromSeed("alice")
	contract := ir.ContractAddress("faucet")
	args := ir.NewIRObject(ir.O("user", ir.IRString(string(s.Address()))))

	entry, err := s.SignCall("flow-9", contract, ir.FuncTap, args)
	require.NoError(t, err)

	payload, err := ir.AuthPayload("flow-9", contract, ir.FuncTap, args)
	require.NoError(t, err)
	require.NoError(t, Verify(entry, payload))
}
