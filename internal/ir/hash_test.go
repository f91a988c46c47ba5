package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = ContractAddress("hash-test")

func TestInvocationIDDeterministic(t *testing.T) {
	args := IRObject{"user": IRString("u1")}
	id1, err := InvocationID("flow-1", testContract, FuncTap, args, 1, 3600)
	require.NoError(t, err)
	id2, err := InvocationID("flow-1", testContract, FuncTap, IRObject{"user": IRString("u1")}, 1, 3600)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestInvocationIDChangesWithEveryField(t *testing.T) {
	args := IRObject{"user": IRString("u1")}
	base := mustInvocationID(t, "flow-1", testContract, FuncTap, args, 1, 3600)

	variants := []string{
		mustInvocationID(t, "flow-2", testContract, FuncTap, args, 1, 3600),
		mustInvocationID(t, "flow-1", ContractAddress("other"), FuncTap, args, 1, 3600),
		mustInvocationID(t, "flow-1", testContract, FuncInitialize, args, 1, 3600),
		mustInvocationID(t, "flow-1", testContract, FuncTap, IRObject{"user": IRString("u2")}, 1, 3600),
		mustInvocationID(t, "flow-1", testContract, FuncTap, args, 2, 3600),
		mustInvocationID(t, "flow-1", testContract, FuncTap, args, 1, 3601),
	}
	for i, v := range variants {
		assert.NotEqual(t, base, v, "variant %d", i)
	}
}

func TestReceiptIDDependsOnOutcome(t *testing.T) {
	ok, err := ReceiptID("inv", OutcomeSuccess, nil, 1)
	require.NoError(t, err)
	failed, err := ReceiptID("inv", "CooldownActive", nil, 1)
	require.NoError(t, err)
	assert.NotEqual(t, ok, failed)
}

func TestAuthPayload(t *testing.T) {
	args := IRObject{"user": IRString("u1")}
	p1, err := AuthPayload("flow-1", testContract, FuncTap, args)
	require.NoError(t, err)
	assert.Len(t, p1, 32)

	p2, err := AuthPayload("flow-2", testContract, FuncTap, args)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain(DomainInvocation, data), hashWithDomain(DomainReceipt, data))
}

func TestHashRejectsNullArgs(t *testing.T) {
	_, err := InvocationID("f", testContract, FuncTap, IRObject{"x": IRNull{}}, 1, 0)
	assert.Error(t, err)
}

func mustInvocationID(t *testing.T, flowToken string, contract Address, function string, args IRObject, seq int64, ledgerTime uint64) string {
	t.Helper()
	id, err := InvocationID(flowToken, contract, function, args, seq, ledgerTime)
	require.NoError(t, err)
	return id
}
