package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// ReplayMismatch is a logged call whose replayed receipt differs.
type ReplayMismatch struct {
	Seq        int64  `json:"seq"`
	FlowToken  string `json:"flow_token"`
	Function   string `json:"function"`
	WantID     string `json:"want_receipt_id"`
	GotID      string `json:"got_receipt_id"`
	WantResult string `json:"want_result,omitempty"`
	GotResult  string `json:"got_result,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Calls         int              `json:"calls"`
	Mismatches    []ReplayMismatch `json:"mismatches"`
	StateMatches  bool             `json:"state_matches"`
	Deterministic bool             `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the call log and verify determinism",
		Long: `Re-execute every logged call on an empty ledger and compare.

Each replayed receipt must have the same content-addressed ID as the
logged one, and the replayed contract storage must equal the database's.

Exit codes:
  0 - Log reproduced exactly
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  tapgame replay
  tapgame replay --db ./tapgame.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	h, err := openExisting(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer h.Close()

	report, err := engine.Replay(ctx, h.store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay log", err)
	}

	result := ReplayResult{
		Calls:         report.Calls,
		Mismatches:    make([]ReplayMismatch, 0, len(report.Mismatches)),
		StateMatches:  report.StateMatches,
		Deterministic: report.OK(),
	}
	for _, m := range report.Mismatches {
		result.Mismatches = append(result.Mismatches, ReplayMismatch(m))
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return f.Report(result, !result.Deterministic, CodeDeterminism, "determinism verification failed")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d call(s)\n", result.Calls)
	fmt.Fprintln(w)

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ [%d] %s (flow %s)\n", m.Seq, m.Function, m.FlowToken)
		fmt.Fprintf(w, "  logged:   %s\n", truncateID(m.WantID))
		fmt.Fprintf(w, "  replayed: %s\n", truncateID(m.GotID))
		if verbose {
			fmt.Fprintf(w, "  logged result:   %s\n", m.WantResult)
			fmt.Fprintf(w, "  replayed result: %s\n", m.GotResult)
		}
	}
	if len(result.Mismatches) > 0 {
		fmt.Fprintln(w)
	}

	if result.StateMatches {
		fmt.Fprintln(w, "✓ Contract state matches")
	} else {
		fmt.Fprintln(w, "✗ Contract state differs")
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ All calls verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
