package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/tapgame/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestInvocation creates a test invocation with minimal required fields.
func createTestInvocation(id, flowToken string, seq int64, ledgerTime uint64) ir.Invocation {
	return ir.Invocation{
		ID:            id,
		FlowToken:     flowToken,
		Contract:      ir.ContractAddress("faucet"),
		Function:      ir.FuncTap,
		Args:          ir.IRObject{},
		Seq:           seq,
		LedgerTime:    ledgerTime,
		EngineVersion: "0.1.0",
		IRVersion:     "1",
	}
}

// createTestReceipt creates a receipt for an invocation.
func createTestReceipt(id, invocationID, outcome string, seq int64) ir.Receipt {
	return ir.Receipt{
		ID:           id,
		InvocationID: invocationID,
		Outcome:      outcome,
		Result:       ir.IRObject{},
		Seq:          seq,
	}
}

func mustWriteCall(t *testing.T, s *Store, inv ir.Invocation, rcpt ir.Receipt) {
	t.Helper()
	if err := s.WriteCall(context.Background(), inv, rcpt); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}
}
