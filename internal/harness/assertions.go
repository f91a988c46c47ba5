package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/tapgame/internal/engine"
	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] t=%d %s %v -> %s\n", ev.Seq, ev.At, ev.Call, ev.Args, ev.Outcome)
		}
	}

	return buf.String()
}

// AssertionContext provides what state assertions need: the engine to read
// through and the scenario's address bindings.
type AssertionContext struct {
	Ctx      context.Context
	Store    *store.Store
	Engine   *engine.Engine
	Contract ir.Address
	Asset    ir.Address

	// Resolve maps a reference name (signer, contract or asset) to its
	// address.
	Resolve func(ref string) (ir.Address, bool)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutcomeCount:
			err = assertOutcomeCount(result, assertion)
		case AssertLastTap, AssertNoLastTap, AssertBalance, AssertReplay:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: %s requires engine context", i, assertion.Type)
				break
			}
			err = evaluateState(actx, result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func evaluateState(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	switch a.Type {
	case AssertLastTap, AssertNoLastTap:
		return assertLastTap(actx, a)
	case AssertBalance:
		return assertBalance(actx, a)
	case AssertReplay:
		return assertReplay(actx, trace)
	}
	return fmt.Errorf("unknown state assertion %q", a.Type)
}

// assertLastTap checks the user's registry entry (last_tap) or its
// absence (no_last_tap).
func assertLastTap(actx *AssertionContext, a Assertion) error {
	user, ok := actx.Resolve(a.User)
	if !ok {
		return fmt.Errorf("%s: unknown user %q", a.Type, a.User)
	}

	last, tapped, err := actx.Engine.LastTap(actx.Ctx, actx.Contract, user)
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("read last tap of %s", a.User),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	if a.Type == AssertNoLastTap {
		if tapped {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("no tap recorded for %s", a.User),
				Actual:   fmt.Sprintf("last tap at %d", last),
			}
		}
		return nil
	}

	if !tapped {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s last tapped at %d", a.User, *a.At),
			Actual:   "no tap recorded",
		}
	}
	if last != *a.At {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s last tapped at %d", a.User, *a.At),
			Actual:   fmt.Sprintf("last tap at %d", last),
		}
	}
	return nil
}

// assertBalance checks the holder's balance of the scenario asset.
func assertBalance(actx *AssertionContext, a Assertion) error {
	holder, ok := actx.Resolve(a.Holder)
	if !ok {
		return fmt.Errorf("balance: unknown holder %q", a.Holder)
	}
	want, err := ir.ParseU128(a.Amount)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	got, err := actx.Engine.Balance(actx.Ctx, actx.Asset, holder)
	if err != nil {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("read balance of %s", a.Holder),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}
	if !got.Eq(want) {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("balance of %s = %s", a.Holder, want.Dec()),
			Actual:   fmt.Sprintf("balance = %s", got.Dec()),
		}
	}
	return nil
}

// assertOutcomeCount checks how many calls ended with an outcome.
func assertOutcomeCount(result *Result, a Assertion) error {
	count := result.Outcomes(a.Call)[a.Outcome]
	if count != a.Count {
		what := a.Outcome
		if a.Call != "" {
			what = fmt.Sprintf("%s (%s)", a.Outcome, a.Call)
		}
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d receipts with outcome %s", a.Count, what),
			Actual:   fmt.Sprintf("%d receipts", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertReplay re-executes the scenario's call log and requires identical
// receipts and final state.
func assertReplay(actx *AssertionContext, trace []TraceEvent) error {
	report, err := engine.Replay(actx.Ctx, actx.Store)
	if err != nil {
		return &AssertionError{
			Type:     AssertReplay,
			Expected: "log replays",
			Actual:   fmt.Sprintf("replay error: %v", err),
			Trace:    trace,
		}
	}
	if report.OK() {
		return nil
	}

	var actual []string
	for _, m := range report.Mismatches {
		actual = append(actual, fmt.Sprintf("seq %d %s: %s != %s", m.Seq, m.Function, m.GotResult, m.WantResult))
	}
	if !report.StateMatches {
		actual = append(actual, "final state differs")
	}
	return &AssertionError{
		Type:     AssertReplay,
		Expected: fmt.Sprintf("%d calls replayed identically", report.Calls),
		Actual:   strings.Join(actual, "; "),
		Trace:    trace,
	}
}

// valuesEqual compares two plain values for equality.
// Handles nested maps and slices.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(actual, expected)
}
