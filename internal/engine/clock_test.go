package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Seq(t *testing.T) {
	tests := []struct {
		name  string
		clock *Clock
		want  []int64
	}{
		{"fresh log", NewClock(), []int64{1, 2, 3}},
		{"resumed after seq 41", NewClockAt(41), []int64{42, 43}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.want {
				assert.Equal(t, want, tt.clock.Next())
			}
			last := tt.want[len(tt.want)-1]
			assert.Equal(t, last, tt.clock.Current())
			assert.Equal(t, last, tt.clock.Current(), "Current does not advance")
		})
	}
}

func TestClock_ConcurrentSeqsAreUnique(t *testing.T) {
	c := NewClock()
	const goroutines, perGoroutine = 50, 100

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d issued twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), c.Current())
}

func TestMonotonic_NeverDecreases(t *testing.T) {
	now := uint64(100)
	m := &monotonic{src: LedgerClockFunc(func() uint64 { return now })}

	assert.Equal(t, uint64(100), m.Now())
	now = 50
	assert.Equal(t, uint64(100), m.Now(), "ledger time must not go backwards")
	now = 200
	assert.Equal(t, uint64(200), m.Now())
}

func TestMonotonic_Floor(t *testing.T) {
	m := &monotonic{src: FixedClock(10), floor: 3600}
	assert.Equal(t, uint64(3600), m.Now())
}

func TestSystemClock(t *testing.T) {
	assert.Greater(t, SystemClock{}.Now(), uint64(1_600_000_000))
}
