package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic logical clock that orders the call log.
//
// Every logged call is stamped with a strictly increasing seq from this
// clock. Replay reuses the logged seq, so ordering never depends on wall
// time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// However, the Engine's single-writer design means only one goroutine
// calls Next() at a time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to resume after the last logged call.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// LedgerClock supplies ledger time in seconds.
type LedgerClock interface {
	Now() uint64
}

// LedgerClockFunc adapts a function to LedgerClock.
type LedgerClockFunc func() uint64

// Now implements LedgerClock.
func (f LedgerClockFunc) Now() uint64 {
	return f()
}

// SystemClock reads Unix time from the system clock.
type SystemClock struct{}

// Now implements LedgerClock.
func (SystemClock) Now() uint64 {
	now := time.Now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// FixedClock always reads t.
func FixedClock(t uint64) LedgerClock {
	return LedgerClockFunc(func() uint64 { return t })
}

// monotonic clamps a source so consecutive readings never decrease.
// Not safe for concurrent use; the engine reads it under its lock.
type monotonic struct {
	src   LedgerClock
	floor uint64
}

func (m *monotonic) Now() uint64 {
	t := m.peek()
	m.advance(t)
	return t
}

// peek reads the clamped time without moving the floor.
func (m *monotonic) peek() uint64 {
	if t := m.src.Now(); t > m.floor {
		return t
	}
	return m.floor
}

func (m *monotonic) advance(t uint64) {
	if t > m.floor {
		m.floor = t
	}
}
