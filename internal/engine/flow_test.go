package engine

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapgame/internal/auth"
	"github.com/roach88/tapgame/internal/ir"
)

func TestUUIDv7Generator(t *testing.T) {
	token := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{12}$`, token)
}

func TestUUIDv7Generator_SortsByCreation(t *testing.T) {
	gen := UUIDv7Generator{}
	tokens := make([]string, 200)
	for i := range tokens {
		tokens[i] = gen.Generate()
	}

	assert.True(t, sort.StringsAreSorted(tokens), "tokens from one process sort in creation order")
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		require.False(t, seen[tok], "token %s generated twice", tok)
		seen[tok] = true
	}
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	gen := UUIDv7Generator{}
	const goroutines = 100

	tokens := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- gen.Generate()
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[string]bool)
	for token := range tokens {
		require.False(t, seen[token], "duplicate token generated")
		seen[token] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("flow-1", "flow-2")

	assert.Equal(t, "flow-1", gen.Generate())
	assert.Equal(t, "flow-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() }, "exhausted generator panics")
	assert.Panics(t, func() { NewFixedGenerator().Generate() })
}

// Every logged call keeps the flow token it was submitted with, and a
// token is spent even when the contract rejects the call.
func TestEngine_FlowTokenIdentifiesCall(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	e := New(s, UUIDv7Generator{}, WithLedgerClock(FixedClock(0)))
	alice := auth.SignerFromSeed("alice")

	tapArgs := ir.NewIRObject(ir.O("user", ir.IRString(alice.Address())))
	flow := e.NewFlow()
	entry, err := alice.SignCall(flow, faucetAddr, ir.FuncTap, tapArgs)
	require.NoError(t, err)
	call := Call{Contract: faucetAddr, Function: ir.FuncTap, Args: tapArgs, Auth: []ir.AuthEntry{entry}, FlowToken: flow}

	rcpt, err := e.Execute(ctx, call)
	require.Error(t, err)
	assert.Equal(t, "Uninitialized", rcpt.Outcome)

	logged, err := s.ReadCallByFlowToken(ctx, flow)
	require.NoError(t, err)
	assert.Equal(t, rcpt.ID, logged.Receipt.ID)
	assert.Equal(t, alice.Address(), logged.Invocation.Auth[0].Address)

	_, err = e.Execute(ctx, call)
	require.Error(t, err)
	assert.True(t, IsDuplicateFlowToken(err))
}
