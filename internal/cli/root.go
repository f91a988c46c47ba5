package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Contract   string
	Asset      string
	LedgerTime string // seconds; empty means wall clock

	settings *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tapgame CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tapgame",
		Short: "tapgame - a tap-to-earn faucet on a local ledger",
		Long: `A faucet contract that pays a fixed reward to a signed caller at most
once per cooldown, hosted on a single-writer SQLite ledger with a
replayable call log.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := opts.Settings()
			if err != nil {
				return err
			}
			slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr()))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Contract, "contract", "", "faucet contract name (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Asset, "asset", "", "asset contract name (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.LedgerTime, "ledger-time", "", "ledger time in seconds for calls (default: wall clock)")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewFundCommand(opts))
	cmd.AddCommand(NewTapCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Settings resolves the configuration: file and environment through
// config.Load, then the global flags on top. The result is cached.
func (o *RootOptions) Settings() (config.Config, error) {
	if o.settings != nil {
		return *o.settings, nil
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Contract != "" {
		cfg.Contract = o.Contract
	}
	if o.Asset != "" {
		cfg.Asset = o.Asset
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid flags", err)
	}

	o.settings = &cfg
	return cfg, nil
}

// ledgerTime parses --ledger-time. ok is false when the flag is unset.
func (o *RootOptions) ledgerTime() (t uint64, ok bool, err error) {
	if o.LedgerTime == "" {
		return 0, false, nil
	}
	t, err = strconv.ParseUint(o.LedgerTime, 10, 64)
	if err != nil {
		return 0, false, NewExitError(ExitCommandError, fmt.Sprintf("invalid --ledger-time %q: expected seconds", o.LedgerTime))
	}
	return t, true, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
