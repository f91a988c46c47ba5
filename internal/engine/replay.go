package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tapgame/internal/store"
)

// Replay
//
// Every input a call consumes is in its invocation record: contract,
// function, args, auth entries, seq and ledger time. Re-executing the log
// in seq order against an empty store therefore has to reproduce each
// receipt (compared by content-addressed ID) and the final contract state.
// A mismatch means the log was tampered with or execution is not
// deterministic.

// Mismatch is a logged call whose replayed receipt differs.
type Mismatch struct {
	Seq        int64
	FlowToken  string
	Function   string
	WantID     string
	GotID      string
	WantResult string
	GotResult  string
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	// Calls is the number of logged calls re-executed.
	Calls int

	// Mismatches lists calls whose receipts differ, in seq order.
	Mismatches []Mismatch

	// StateMatches is true when the replayed contract data equals the
	// source's.
	StateMatches bool
}

// OK reports whether the replay reproduced the source exactly.
func (r ReplayReport) OK() bool {
	return len(r.Mismatches) == 0 && r.StateMatches
}

// Replay re-executes every call logged in src on a fresh in-memory store
// and compares the results. opts configure the replaying engine (tests
// pass WithAuthorizerFactory when the source was produced with one).
func Replay(ctx context.Context, src *store.Store, opts ...EngineOption) (ReplayReport, error) {
	var report ReplayReport

	calls, err := src.ReadCalls(ctx)
	if err != nil {
		return report, fmt.Errorf("replay: %w", err)
	}

	dst, err := store.OpenMemory()
	if err != nil {
		return report, fmt.Errorf("replay: %w", err)
	}
	defer dst.Close()

	e := New(dst, NewFixedGenerator(), opts...)

	for _, c := range calls {
		inv := c.Invocation
		call := Call{
			Contract:  inv.Contract,
			Function:  inv.Function,
			Args:      inv.Args,
			Auth:      inv.Auth,
			FlowToken: inv.FlowToken,
		}

		e.mu.Lock()
		got, err := e.execute(ctx, call, inv.Seq, inv.LedgerTime)
		e.mu.Unlock()
		if err != nil && got.ID == "" {
			return report, fmt.Errorf("replay seq %d: %w", inv.Seq, err)
		}
		report.Calls++

		if got.ID != c.Receipt.ID {
			m := Mismatch{
				Seq:        inv.Seq,
				FlowToken:  inv.FlowToken,
				Function:   inv.Function,
				WantID:     c.Receipt.ID,
				GotID:      got.ID,
				WantResult: c.Receipt.Outcome,
				GotResult:  got.Outcome,
			}
			report.Mismatches = append(report.Mismatches, m)
			slog.Warn("replay mismatch",
				"seq", m.Seq,
				"flow", m.FlowToken,
				"want_outcome", m.WantResult,
				"got_outcome", m.GotResult,
			)
		}
	}

	want, err := src.ContractData(ctx)
	if err != nil {
		return report, fmt.Errorf("replay: %w", err)
	}
	got, err := dst.ContractData(ctx)
	if err != nil {
		return report, fmt.Errorf("replay: %w", err)
	}
	report.StateMatches = sameEntries(want, got)

	slog.Info("replay finished",
		"calls", report.Calls,
		"mismatches", len(report.Mismatches),
		"state_matches", report.StateMatches,
	)
	return report, nil
}

func sameEntries(a, b []store.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
