package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/ir"
	"github.com/roach88/tapgame/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	FlowToken string
	Function  string
}

// LogEntry is a single logged call with its receipt.
type LogEntry struct {
	Seq          int64                  `json:"seq"`
	LedgerTime   uint64                 `json:"ledger_time"`
	FlowToken    string                 `json:"flow_token"`
	Contract     string                 `json:"contract"`
	Function     string                 `json:"function"`
	Args         map[string]interface{} `json:"args"`
	Signers      []string               `json:"signers,omitempty"`
	Outcome      string                 `json:"outcome"`
	Result       map[string]interface{} `json:"result,omitempty"`
	InvocationID string                 `json:"invocation_id"`
	ReceiptID    string                 `json:"receipt_id"`
}

// LogResult holds the complete log output.
type LogResult struct {
	Calls []LogEntry `json:"calls"`
	Stats LogStats   `json:"stats"`
}

// LogStats holds summary statistics for the listed calls.
type LogStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List logged calls and receipts",
		Long: `List the calls recorded in the database in seq order.

Every call the contract ran is logged, including the ones it rejected;
rejected calls carry their error code as the outcome. Use --flow to show
a single call and --function to list one kind of call.

Examples:
  tapgame log
  tapgame log --function tap --verbose
  tapgame log --flow 0192f0c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "show the call with this flow token")
	cmd.Flags().StringVar(&opts.Function, "function", "", "filter to one function (initialize, tap, mint)")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	h, err := openExisting(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer h.Close()

	calls, err := readLogCalls(ctx, h.store, opts.FlowToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}

	result := buildLog(calls, opts.Function)

	if opts.Format == "json" {
		return newFormatter(cmd, opts.RootOptions).Success(result)
	}
	return outputLogText(cmd.OutOrStdout(), result, opts.Verbose)
}

func readLogCalls(ctx context.Context, st *store.Store, flowToken string) ([]store.Call, error) {
	if flowToken == "" {
		return st.ReadCalls(ctx)
	}
	c, err := st.ReadCallByFlowToken(ctx, flowToken)
	if errors.Is(err, sql.ErrNoRows) {
		return []store.Call{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []store.Call{c}, nil
}

// buildLog converts logged calls to log entries, keeping only calls to
// function when it is set.
func buildLog(calls []store.Call, function string) LogResult {
	result := LogResult{Calls: []LogEntry{}}
	for _, c := range calls {
		inv, rcpt := c.Invocation, c.Receipt
		if function != "" && inv.Function != function {
			continue
		}

		entry := LogEntry{
			Seq:          inv.Seq,
			LedgerTime:   inv.LedgerTime,
			FlowToken:    inv.FlowToken,
			Contract:     string(inv.Contract),
			Function:     inv.Function,
			Args:         irObjectToMap(inv.Args),
			Outcome:      rcpt.Outcome,
			Result:       irObjectToMap(rcpt.Result),
			InvocationID: inv.ID,
			ReceiptID:    rcpt.ID,
		}
		for _, a := range inv.Auth {
			entry.Signers = append(entry.Signers, string(a.Address))
		}
		result.Calls = append(result.Calls, entry)

		result.Stats.Total++
		if rcpt.Succeeded() {
			result.Stats.Succeeded++
		} else {
			result.Stats.Failed++
		}
	}
	return result
}

// irObjectToMap converts an ir.IRObject to a plain map.
func irObjectToMap(obj ir.IRObject) map[string]interface{} {
	if obj == nil {
		return nil
	}

	result := make(map[string]interface{})
	for k, v := range obj {
		result[k] = irValueToInterface(v)
	}
	return result
}

// irValueToInterface converts an ir.IRValue to a plain interface{}.
func irValueToInterface(v ir.IRValue) interface{} {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		return bool(val)
	case ir.IRArray:
		result := make([]interface{}, len(val))
		for i, elem := range val {
			result[i] = irValueToInterface(elem)
		}
		return result
	case ir.IRObject:
		return irObjectToMap(val)
	default:
		return nil
	}
}

func outputLogText(w io.Writer, result LogResult, verbose bool) error {
	if len(result.Calls) == 0 {
		fmt.Fprintln(w, "No calls found.")
		return nil
	}

	for _, e := range result.Calls {
		mark := "✓"
		if e.Outcome != ir.OutcomeSuccess {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s [%d] t=%d %s %s -> %s\n", mark, e.Seq, e.LedgerTime, e.Function, formatArgs(e.Args), e.Outcome)
		if !verbose {
			continue
		}
		if len(e.Result) > 0 {
			fmt.Fprintf(w, "      Result: %s\n", formatArgs(e.Result))
		}
		if len(e.Signers) > 0 {
			fmt.Fprintf(w, "      Signed by: %s\n", strings.Join(e.Signers, ", "))
		}
		fmt.Fprintf(w, "      Flow: %s\n", e.FlowToken)
		fmt.Fprintf(w, "      Contract: %s\n", e.Contract)
		fmt.Fprintf(w, "      Receipt: %s\n", truncateID(e.ReceiptID))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d call(s): %d succeeded, %d failed\n", result.Stats.Total, result.Stats.Succeeded, result.Stats.Failed)
	return nil
}

// formatArgs formats a map of args for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case map[string]interface{}:
		return formatArgs(val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
