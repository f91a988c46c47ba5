package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/holiman/uint256"

	"github.com/roach88/tapgame/internal/auth"
	"github.com/roach88/tapgame/internal/faucet"
	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/ledger"
	"github.com/roach88/tapgame/internal/store"
	"github.com/roach88/tapgame/internal/token"
)

// FlowTokenGenerator generates unique flow tokens for calls submitted
// without one. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests).
type FlowTokenGenerator interface {
	Generate() string
}

// AuthorizerFactory builds the authorizer a call runs with from the call's
// auth payload and entries.
type AuthorizerFactory func(payload []byte, entries []ir.AuthEntry) ledger.Authorizer

// Call is a request to run one contract function.
type Call struct {
	Contract ir.Address
	Function string
	Args     ir.IRObject
	Auth     []ir.AuthEntry

	// FlowToken is the call's single-use nonce. Generated when empty; a
	// signed call must carry the token its signatures cover.
	FlowToken string
}

// Engine is the single-writer ledger host.
//
// Thread-safety model:
//   - Execute(): safe from any goroutine; calls are serialized
//   - Submit(): safe from any goroutine; requires a running Run loop
//   - Run(): must be called from exactly one goroutine
//   - read methods (Config, LastTap, Balance): safe from any goroutine
type Engine struct {
	mu sync.Mutex

	store      *store.Store
	clock      *Clock
	ledger     *monotonic
	queue      *requestQueue
	flowGen    FlowTokenGenerator
	authorizer AuthorizerFactory
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the logical clock. Use NewClockAt to continue an existing log.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLedgerClock sets the ledger time source. Default: SystemClock.
func WithLedgerClock(c LedgerClock) EngineOption {
	return func(e *Engine) {
		e.ledger.src = c
	}
}

// WithLedgerFloor sets the earliest ledger time a call may observe.
func WithLedgerFloor(t uint64) EngineOption {
	return func(e *Engine) {
		e.ledger.floor = t
	}
}

// WithAuthorizerFactory replaces signature verification.
// Tests use it to authorize addresses without keys.
func WithAuthorizerFactory(f AuthorizerFactory) EngineOption {
	return func(e *Engine) {
		e.authorizer = f
	}
}

// New creates an Engine over s.
//
// A fresh engine starts its logical clock at 0; to continue an existing
// log use Resume, which restores the clock and the ledger time floor.
func New(s *store.Store, flowGen FlowTokenGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      s,
		clock:      NewClock(),
		ledger:     &monotonic{src: SystemClock{}},
		queue:      newRequestQueue(),
		flowGen:    flowGen,
		authorizer: signatureAuthorizer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resume creates an Engine that continues the log already in s.
// Options are applied after the restored clock and floor, so they win.
func Resume(ctx context.Context, s *store.Store, flowGen FlowTokenGenerator, opts ...EngineOption) (*Engine, error) {
	seq, err := s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	floor, err := s.LastLedgerTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	base := []EngineOption{WithClock(NewClockAt(seq)), WithLedgerFloor(floor)}
	return New(s, flowGen, append(base, opts...)...), nil
}

func signatureAuthorizer(payload []byte, entries []ir.AuthEntry) ledger.Authorizer {
	authz, rejected := auth.NewSignatureAuthorizer(payload, entries)
	for _, err := range rejected {
		slog.Warn("auth entry rejected", "error", err)
	}
	slog.Debug("auth entries verified", "count", authz.Len(), "rejected", len(rejected))
	return authz
}

// NewFlow generates a new flow token.
// Thread-safe: may be called from any goroutine.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// Execute runs one call to completion.
//
// The returned receipt is set whenever the call was logged. A call that
// failed inside the contract is logged with a failure receipt and also
// returns the contract error. A call the host refused (see HostError) or
// that hit a storage failure returns only an error, is not logged and
// leaves the seq and the ledger time floor where they were.
func (e *Engine) Execute(ctx context.Context, call Call) (ir.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if call.FlowToken == "" {
		call.FlowToken = e.flowGen.Generate()
	}
	return e.execute(ctx, call, 0, 0)
}

// execute runs call under e.mu. A zero seq means "assign the next one";
// replay passes the logged seq and ledger time instead.
func (e *Engine) execute(ctx context.Context, call Call, seq int64, ledgerTime uint64) (ir.Receipt, error) {
	if !knownFunction(call.Function) {
		return ir.Receipt{}, newUnknownFunctionError(call.FlowToken, call.Function)
	}
	if err := call.Contract.Validate(); err != nil {
		return ir.Receipt{}, &HostError{
			Code:      ErrCodeInvalidContract,
			Message:   err.Error(),
			FlowToken: call.FlowToken,
			Function:  call.Function,
		}
	}
	if !call.Contract.IsContract() {
		return ir.Receipt{}, &HostError{
			Code:      ErrCodeInvalidContract,
			Message:   fmt.Sprintf("%s is an account, not a contract", call.Contract),
			FlowToken: call.FlowToken,
			Function:  call.Function,
		}
	}
	if call.Args == nil {
		call.Args = ir.IRObject{}
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return ir.Receipt{}, err
	}
	defer tx.Rollback() // No-op if committed

	dup, err := tx.HasFlowToken(ctx, call.FlowToken)
	if err != nil {
		return ir.Receipt{}, err
	}
	if dup {
		return ir.Receipt{}, newDuplicateFlowTokenError(call.FlowToken, call.Function)
	}

	stamp := seq == 0
	if stamp {
		seq = e.clock.Current() + 1
		ledgerTime = e.ledger.peek()
	}

	inv := ir.Invocation{
		FlowToken:     call.FlowToken,
		Contract:      call.Contract,
		Function:      call.Function,
		Args:          call.Args,
		Auth:          call.Auth,
		Seq:           seq,
		LedgerTime:    ledgerTime,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if inv.ID, err = ir.InvocationID(inv.FlowToken, inv.Contract, inv.Function, inv.Args, inv.Seq, inv.LedgerTime); err != nil {
		return ir.Receipt{}, faucet.InvalidArgument("args", err)
	}

	payload, err := ir.AuthPayload(inv.FlowToken, inv.Contract, inv.Function, inv.Args)
	if err != nil {
		return ir.Receipt{}, faucet.InvalidArgument("args", err)
	}

	slog.Debug("executing call",
		"flow", inv.FlowToken,
		"contract", inv.Contract,
		"function", inv.Function,
		"seq", inv.Seq,
		"ledger_time", inv.LedgerTime,
	)

	res, callErr := e.dispatch(ctx, tx, inv, e.authorizer(payload, inv.Auth))
	if callErr != nil && faucet.CodeOf(callErr) == "" {
		// Storage or encoding failure: nothing is logged.
		return ir.Receipt{}, fmt.Errorf("%s %s: %w", inv.Function, inv.FlowToken, callErr)
	}

	if callErr == nil {
		rcpt, err := newReceipt(inv, ir.OutcomeSuccess, res)
		if err != nil {
			return ir.Receipt{}, err
		}
		if err := tx.WriteInvocation(ctx, inv); err != nil {
			return ir.Receipt{}, err
		}
		if err := tx.WriteReceipt(ctx, rcpt); err != nil {
			return ir.Receipt{}, err
		}
		if err := tx.Commit(); err != nil {
			return ir.Receipt{}, err
		}
		if stamp {
			e.stamp(inv)
		}
		logCall(inv, rcpt)
		return rcpt, nil
	}

	// Contract failure: discard every write the call made, then log it.
	if err := tx.Rollback(); err != nil {
		return ir.Receipt{}, fmt.Errorf("rollback: %w", err)
	}
	rcpt, err := newReceipt(inv, string(faucet.CodeOf(callErr)), ir.NewIRObject(
		ir.O("error", ir.IRString(callErr.Error())),
	))
	if err != nil {
		return ir.Receipt{}, err
	}
	if err := e.store.WriteCall(ctx, inv, rcpt); err != nil {
		return ir.Receipt{}, err
	}
	if stamp {
		e.stamp(inv)
	}
	logCall(inv, rcpt)
	return rcpt, callErr
}

// stamp advances the seq clock and the ledger time floor past a logged call.
func (e *Engine) stamp(inv ir.Invocation) {
	e.clock.Next()
	e.ledger.advance(inv.LedgerTime)
}

func newReceipt(inv ir.Invocation, outcome string, res ir.IRObject) (ir.Receipt, error) {
	if res == nil {
		res = ir.IRObject{}
	}
	id, err := ir.ReceiptID(inv.ID, outcome, res, inv.Seq)
	if err != nil {
		return ir.Receipt{}, err
	}
	return ir.Receipt{
		ID:           id,
		InvocationID: inv.ID,
		Outcome:      outcome,
		Result:       res,
		Seq:          inv.Seq,
	}, nil
}

func logCall(inv ir.Invocation, rcpt ir.Receipt) {
	if rcpt.Succeeded() {
		slog.Info("call committed",
			"flow", inv.FlowToken,
			"function", inv.Function,
			"contract", inv.Contract,
			"seq", inv.Seq,
		)
		return
	}
	slog.Info("call failed",
		"flow", inv.FlowToken,
		"function", inv.Function,
		"contract", inv.Contract,
		"seq", inv.Seq,
		"outcome", rcpt.Outcome,
	)
}

// Run starts the loop that executes submitted calls in FIFO order.
// Blocks until the context is cancelled or Stop() is called.
//
// A failed call is reported to its submitter and the loop continues:
// calls are never retried.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		req, ok := e.queue.TryDequeue()
		if ok {
			rcpt, err := e.Execute(ctx, req.call)
			req.reply <- result{receipt: rcpt, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain(ctx.Err())
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if e.queue.Len() == 0 && e.queueClosed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

func (e *Engine) queueClosed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// drain fails every request still queued after the loop stops.
func (e *Engine) drain(err error) {
	for {
		req, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		req.reply <- result{err: err}
	}
}

// Stop closes the request queue. Run returns once the queue is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

// QueueLen returns the number of submitted calls not yet executed.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Submit hands call to the Run loop and waits for its receipt.
func (e *Engine) Submit(ctx context.Context, call Call) (ir.Receipt, error) {
	req := request{call: call, reply: make(chan result, 1)}
	if !e.queue.Enqueue(req) {
		return ir.Receipt{}, &HostError{Code: ErrCodeStopped, Message: "engine stopped", FlowToken: call.FlowToken, Function: call.Function}
	}
	select {
	case <-ctx.Done():
		return ir.Receipt{}, ctx.Err()
	case res := <-req.reply:
		return res.receipt, res.err
	}
}

// Config returns the configuration of the faucet at contract.
func (e *Engine) Config(ctx context.Context, contract ir.Address) (ir.Config, error) {
	var cfg ir.Config
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		cfg, err = faucet.New(readEnv(tx, contract)).Config(ctx)
		return err
	})
	return cfg, err
}

// LastTap returns the last claim time of user at the faucet and whether
// the user ever tapped.
func (e *Engine) LastTap(ctx context.Context, contract, user ir.Address) (uint64, bool, error) {
	var (
		last   uint64
		tapped bool
	)
	err := e.store.View(ctx, func(tx *store.Tx) error {
		c := faucet.New(readEnv(tx, contract))
		var err error
		if tapped, err = c.HasTapped(ctx, user); err != nil {
			return err
		}
		last, err = c.LastTap(ctx, user)
		return err
	})
	return last, tapped, err
}

// Balance returns holder's balance of asset.
func (e *Engine) Balance(ctx context.Context, asset, holder ir.Address) (*uint256.Int, error) {
	var bal *uint256.Int
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		bal, err = token.New(asset, tx.Scope(asset, ledger.Persistent)).Balance(ctx, holder)
		return err
	})
	return bal, err
}

func readEnv(tx *store.Tx, contract ir.Address) faucet.Env {
	return faucet.Env{
		Contract:   contract,
		Instance:   tx.Scope(contract, ledger.Instance),
		Persistent: tx.Scope(contract, ledger.Persistent),
		Auth:       ledger.Allow{},
	}
}
