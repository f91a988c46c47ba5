package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is returned by a MemoryScope whose FailSet flag is raised.
var ErrInjected = errors.New("injected storage failure")

// MemoryScope is an in-memory ledger.Scope for unit tests that do not need
// the SQLite store.
type MemoryScope struct {
	mu      sync.Mutex
	entries map[string][]byte
	writes  int

	// FailSet makes every Set return ErrInjected.
	FailSet bool
}

// NewMemoryScope returns an empty scope.
func NewMemoryScope() *MemoryScope {
	return &MemoryScope{entries: make(map[string][]byte)}
}

// Has implements ledger.Scope.
func (s *MemoryScope) Has(_ context.Context, key []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[string(key)]
	return ok, nil
}

// Get implements ledger.Scope.
func (s *MemoryScope) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements ledger.Scope.
func (s *MemoryScope) Set(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSet {
		return ErrInjected
	}
	s.entries[string(key)] = append([]byte(nil), value...)
	s.writes++
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryScope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Writes returns how many Set calls succeeded.
func (s *MemoryScope) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Snapshot returns a copy of all entries keyed by string(key).
func (s *MemoryScope) Snapshot() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.entries))
	for k, v := range s.entries {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
