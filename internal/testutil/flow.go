package testutil

import (
	"fmt"
	"sync"
)

// SequenceFlowGenerator produces predictable flow tokens: prefix-001,
// prefix-002, ...
//
// The host accepts each flow token once, so a generator that repeats a
// token would make every call after the first fail. Sequencing keeps the
// tokens unique and the call log byte-identical across runs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceFlowGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceFlowGenerator creates a generator. An empty prefix defaults to "test-flow".
func NewSequenceFlowGenerator(prefix string) *SequenceFlowGenerator {
	if prefix == "" {
		prefix = "test-flow"
	}
	return &SequenceFlowGenerator{prefix: prefix}
}

// Generate returns the next token.
//
// Implements engine.FlowTokenGenerator.
func (g *SequenceFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}
