package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/auth"
	"github.com/roach88/tapgame/internal/config"
	"github.com/roach88/tapgame/internal/engine"
	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/store"
)

// host is an open database with an engine resumed over its log.
type host struct {
	cfg    config.Config
	store  *store.Store
	engine *engine.Engine
}

// openHost opens the configured database, creating it if needed, and
// resumes the engine where the log ends. --ledger-time pins the ledger
// clock for every call made through the host.
func openHost(ctx context.Context, opts *RootOptions) (*host, error) {
	cfg, err := opts.Settings()
	if err != nil {
		return nil, err
	}

	var engOpts []engine.EngineOption
	t, pinned, err := opts.ledgerTime()
	if err != nil {
		return nil, err
	}
	if pinned {
		engOpts = append(engOpts, engine.WithLedgerClock(engine.FixedClock(t)))
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	eng, err := engine.Resume(ctx, st, engine.UUIDv7Generator{}, engOpts...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to resume engine", err)
	}
	return &host{cfg: cfg, store: st, engine: eng}, nil
}

// openExisting is openHost for read-only commands: the database must
// already exist.
func openExisting(ctx context.Context, opts *RootOptions) (*host, error) {
	cfg, err := opts.Settings()
	if err != nil {
		return nil, err
	}
	if cfg.Database != store.MemoryPath {
		if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", cfg.Database))
		}
	}
	return openHost(ctx, opts)
}

func (h *host) Close() error {
	return h.store.Close()
}

// CallView is the printed form of an executed call.
type CallView struct {
	FlowToken string         `json:"flow_token"`
	Seq       int64          `json:"seq"`
	Contract  string         `json:"contract"`
	Function  string         `json:"function"`
	Outcome   string         `json:"outcome"`
	Result    map[string]any `json:"result,omitempty"`
	ReceiptID string         `json:"receipt_id"`
}

// execute runs call and prints its receipt. A call the contract rejected
// is logged by the host and exits with ExitFailure; a call the host
// refused exits with ExitCommandError.
func (h *host) execute(ctx context.Context, cmd *cobra.Command, opts *RootOptions, call engine.Call) error {
	rcpt, err := h.engine.Execute(ctx, call)
	if err != nil && rcpt.ID == "" {
		if engine.IsHostError(err) {
			return WrapExitError(ExitCommandError, "call refused", err)
		}
		return WrapExitError(ExitCommandError, "call failed", err)
	}

	view := CallView{
		FlowToken: call.FlowToken,
		Seq:       rcpt.Seq,
		Contract:  string(call.Contract),
		Function:  call.Function,
		Outcome:   rcpt.Outcome,
		Result:    irObjectToMap(rcpt.Result),
		ReceiptID: rcpt.ID,
	}
	f := newFormatter(cmd, opts)
	f.TraceID = call.FlowToken

	if rcpt.Succeeded() {
		if opts.Format == "json" {
			return f.Success(view)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ %s (seq %d)\n", view.Function, view.Seq)
		if len(view.Result) > 0 {
			fmt.Fprintf(w, "  %s\n", formatArgs(view.Result))
		}
		f.VerboseLog("  flow %s, receipt %s", view.FlowToken, view.ReceiptID)
		return nil
	}

	msg, _ := rcpt.Result.String("error")
	if err := f.Error(rcpt.Outcome, msg, view); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s failed: %s", call.Function, rcpt.Outcome))
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// parseAddressFlag validates an address given on the command line.
func parseAddressFlag(name, value string) (ir.Address, error) {
	addr, err := ir.ParseAddress(value)
	if err != nil {
		return "", WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", name), err)
	}
	return addr, nil
}

// parseAmountFlag validates a base-10 u128 amount given on the command line.
func parseAmountFlag(name, value string) (ir.IRValue, error) {
	if value == "" {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --%s: empty amount", name))
	}
	amt, err := ir.ParseU128(value)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", name), err)
	}
	return ir.IRString(amt.Dec()), nil
}

// parseSecondsFlag validates a u64 duration or timestamp.
func parseSecondsFlag(name, value string) (ir.IRValue, error) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", name), err)
	}
	if n <= math.MaxInt64 {
		return ir.IRInt(int64(n)), nil
	}
	return ir.IRString(value), nil
}

// signerFlag loads the signer for --key. A nil signer means the flag was
// not given.
func signerFlag(key string) (*auth.Signer, error) {
	if key == "" {
		return nil, nil
	}
	s, err := auth.SignerFromHex(key)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --key", err)
	}
	return s, nil
}

// signed returns call with a fresh flow token and, when signer is set,
// the signer's auth entry over it.
func signed(eng *engine.Engine, signer *auth.Signer, call engine.Call) (engine.Call, error) {
	call.FlowToken = eng.NewFlow()
	if signer == nil {
		return call, nil
	}
	entry, err := signer.SignCall(call.FlowToken, call.Contract, call.Function, call.Args)
	if err != nil {
		return call, WrapExitError(ExitCommandError, "failed to sign call", err)
	}
	call.Auth = []ir.AuthEntry{entry}
	return call, nil
}
