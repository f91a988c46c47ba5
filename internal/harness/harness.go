package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/tapgame/internal/auth"
	"github.com/roach88/tapgame/internal/engine"
	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/store"
	"github.com/roach88/tapgame/internal/testutil"
)

// Harness executes one scenario on its own store and engine.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.ManualClock
	logger   *slog.Logger
	contract ir.Address
	asset    ir.Address
	signers  map[string]*auth.Signer
	addrs    map[string]ir.Address // reference name -> address
	names    map[ir.Address]string // address -> reference name
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// manual ledger clock and sequential flow tokens, so the trace of a
// scenario is identical on every run.
//
// Execution flow:
// 1. Create fresh in-memory database and engine
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps and check expect clauses
// 4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := newHarness(st, scenario)
	ctx := context.Background()

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Store:    st,
		Engine:   h.engine,
		Contract: h.contract,
		Asset:    h.asset,
		Resolve:  h.resolve,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario) *Harness {
	clock := testutil.NewManualClock(0)
	h := &Harness{
		store:    st,
		clock:    clock,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		contract: ir.ContractAddress(scenario.contractName()),
		asset:    ir.ContractAddress(scenario.assetName()),
		signers:  make(map[string]*auth.Signer, len(scenario.Signers)),
		addrs:    make(map[string]ir.Address, len(scenario.Signers)+2),
		names:    make(map[ir.Address]string, len(scenario.Signers)+2),
	}
	h.engine = engine.New(st,
		testutil.NewSequenceFlowGenerator(scenario.flowPrefix()),
		engine.WithLedgerClock(clock),
	)

	h.bind(RefContract, h.contract)
	h.bind(RefAsset, h.asset)
	for _, name := range scenario.Signers {
		s := auth.SignerFromSeed(name)
		h.signers[name] = s
		h.bind(name, s.Address())
	}
	return h
}

func (h *Harness) bind(name string, addr ir.Address) {
	h.addrs[name] = addr
	h.names[addr] = name
}

// resolve returns the address of a reference name, with or without @.
func (h *Harness) resolve(ref string) (ir.Address, bool) {
	addr, ok := h.addrs[refName(ref)]
	return addr, ok
}

// executeSetup runs all setup steps. A setup call that does not succeed
// aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupStep, result *Result) error {
	for i, step := range setup {
		ev, err := h.call(ctx, step.At, step.Call, step.As, step.Args)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		result.AddTrace(ev)
		if ev.Outcome != ir.OutcomeSuccess {
			return fmt.Errorf("setup step %d: %s failed with %s", i, step.Call, ev.Outcome)
		}

		h.logger.Info("setup step completed",
			"step", i,
			"call", step.Call,
			"seq", ev.Seq,
		)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
// A step without an expect clause must succeed.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		ev, err := h.call(ctx, step.At, step.Call, step.As, step.Args)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		result.AddTrace(ev)

		expect := ExpectClause{Outcome: ir.OutcomeSuccess}
		if step.Expect != nil {
			expect = *step.Expect
		}
		for _, msg := range checkExpect(ev, expect) {
			result.AddError(fmt.Sprintf("flow[%d] %s at %d: %s", i, step.Call, step.At, msg))
		}

		h.logger.Info("flow step completed",
			"step", i,
			"call", step.Call,
			"seq", ev.Seq,
			"outcome", ev.Outcome,
		)
	}

	return nil
}

// call executes one contract call at ledger time at, signed by the signer
// named as (unsigned if empty), and returns its trace event.
func (h *Harness) call(ctx context.Context, at uint64, fn, as string, rawArgs map[string]any) (TraceEvent, error) {
	args, err := h.resolveArgs(rawArgs)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("failed to convert args: %w", err)
	}

	contract := h.contract
	if fn == ir.FuncMint {
		contract = h.asset
	}

	c := engine.Call{
		Contract:  contract,
		Function:  fn,
		Args:      args,
		FlowToken: h.engine.NewFlow(),
	}
	if as != "" {
		signer, ok := h.signers[as]
		if !ok {
			return TraceEvent{}, fmt.Errorf("unknown signer %q", as)
		}
		entry, err := signer.SignCall(c.FlowToken, c.Contract, c.Function, c.Args)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("sign: %w", err)
		}
		c.Auth = []ir.AuthEntry{entry}
	}

	h.clock.Set(at)
	rcpt, err := h.engine.Execute(ctx, c)
	if err != nil && rcpt.ID == "" {
		// Refused by the host: not logged, no receipt.
		return TraceEvent{}, err
	}

	ev := TraceEvent{
		Seq:     rcpt.Seq,
		At:      at,
		Call:    fn,
		As:      as,
		Args:    h.plainObject(args),
		Outcome: rcpt.Outcome,
	}
	if rcpt.Succeeded() && len(rcpt.Result) > 0 {
		ev.Result = h.plainObject(rcpt.Result)
	}
	if !rcpt.Succeeded() {
		// Kept out of the trace; messages are not part of the contract.
		if msg, ok := rcpt.Result.String("error"); ok {
			h.logger.Debug("call failed", "call", fn, "error", msg)
		}
	}
	return ev, nil
}

// checkExpect compares a trace event against an expect clause and returns
// one message per difference.
func checkExpect(ev TraceEvent, expect ExpectClause) []string {
	var msgs []string
	if ev.Outcome != expect.Outcome {
		msgs = append(msgs, fmt.Sprintf("expected outcome %s, got %s", expect.Outcome, ev.Outcome))
	}
	for key, raw := range expect.Result {
		want, err := plainYAML(raw)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("expect.result.%s: %v", key, err))
			continue
		}
		got, ok := ev.Result[key]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("result.%s missing", key))
			continue
		}
		if !valuesEqual(got, want) {
			msgs = append(msgs, fmt.Sprintf("result.%s = %v, expected %v", key, got, want))
		}
	}
	return msgs
}

// resolveArgs converts YAML args to an IRObject, replacing @name strings
// with addresses.
func (h *Harness) resolveArgs(args map[string]any) (ir.IRObject, error) {
	obj, err := convertArgsToIRObject(args)
	if err != nil {
		return nil, err
	}
	for key, v := range obj {
		s, ok := v.(ir.IRString)
		if !ok || !strings.HasPrefix(string(s), "@") {
			continue
		}
		addr, ok := h.resolve(string(s))
		if !ok {
			return nil, fmt.Errorf("field %q: unknown reference %s", key, s)
		}
		obj[key] = ir.IRString(addr)
	}
	return obj, nil
}

// plainObject converts obj to plain Go values for the trace, writing known
// addresses back as @names.
func (h *Harness) plainObject(obj ir.IRObject) map[string]any {
	return plainValue(obj, h.names).(map[string]any)
}

// plainValue converts an IRValue to string, int64, bool, []any or
// map[string]any. Strings found in names are replaced by "@" + name.
func plainValue(v ir.IRValue, names map[ir.Address]string) any {
	switch val := v.(type) {
	case ir.IRString:
		if name, ok := names[ir.Address(val)]; ok {
			return "@" + name
		}
		return string(val)
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		return bool(val)
	case ir.IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = plainValue(elem, names)
		}
		return out
	case ir.IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = plainValue(elem, names)
		}
		return out
	default:
		return nil
	}
}

// plainYAML normalizes a YAML-decoded value the way trace values are
// normalized, so the two compare with reflect.DeepEqual.
func plainYAML(v any) (any, error) {
	irv, err := convertToIRValue(v)
	if err != nil {
		return nil, err
	}
	return plainValue(irv, nil), nil
}

// convertArgsToIRObject converts a map[string]interface{} to ir.IRObject.
// This handles YAML-parsed values and converts them to proper IRValue types.
func convertArgsToIRObject(args map[string]any) (ir.IRObject, error) {
	if args == nil {
		return ir.IRObject{}, nil
	}

	result := make(ir.IRObject)
	for key, val := range args {
		irVal, err := convertToIRValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = irVal
	}
	return result, nil
}

// convertToIRValue converts a YAML-parsed value to an IRValue.
// Returns an error for null values since they are forbidden in canonical JSON
// and would fail later during ID computation (ir.MarshalCanonical rejects nulls).
func convertToIRValue(val any) (ir.IRValue, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are forbidden in IR (canonical JSON does not support null)")
	}

	switch v := val.(type) {
	case string:
		return ir.IRString(v), nil
	case int:
		return ir.IRInt(int64(v)), nil
	case int64:
		return ir.IRInt(v), nil
	case uint64:
		// yaml.v3 decodes integers above MaxInt64 as uint64.
		return ir.IRString(fmt.Sprintf("%d", v)), nil
	case float64:
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are forbidden in IR: %v", v)
	case bool:
		return ir.IRBool(v), nil
	case []any:
		arr := make(ir.IRArray, len(v))
		for i, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj, err := convertArgsToIRObject(v)
		if err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
