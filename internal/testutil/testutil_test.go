package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock(t *testing.T) {
	c := NewManualClock(10)
	assert.Equal(t, uint64(10), c.Now())
	assert.Equal(t, uint64(15), c.Advance(5))
	c.Set(3600)
	assert.Equal(t, uint64(3600), c.Now())
}

func TestSequenceFlowGenerator(t *testing.T) {
	g := NewSequenceFlowGenerator("")
	assert.Equal(t, "test-flow-001", g.Generate())
	assert.Equal(t, "test-flow-002", g.Generate())

	g = NewSequenceFlowGenerator("scenario")
	assert.Equal(t, "scenario-001", g.Generate())
}

func TestSequenceFlowGeneratorUniqueUnderConcurrency(t *testing.T) {
	g := NewSequenceFlowGenerator("c")
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tok := g.Generate()
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 500)
}

func TestMemoryScope(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryScope()

	ok, err := s.Has(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, []byte("k"), []byte("v")))
	v, ok, err := s.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, s.Writes())

	s.FailSet = true
	assert.ErrorIs(t, s.Set(ctx, []byte("k2"), []byte("v")), ErrInjected)
	assert.Equal(t, 1, s.Len())
}
