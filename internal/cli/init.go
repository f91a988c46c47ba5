package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/engine"
	"github.com/roach88/tapgame/internal/ir"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Admin    string
	Reward   string
	Cooldown string
	Key      string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the faucet",
		Long: `Bind the faucet's admin, asset, reward and cooldown.

The asset is the configured asset contract. A faucet can be initialized
once; a second init fails with AlreadyInitialized and changes nothing.

Exit codes:
  0 - Initialized
  1 - Rejected by the contract (logged with its failure receipt)
  2 - Command error (invalid flags, database, etc.)

Examples:
  tapgame init --admin <address> --reward 100 --cooldown 3600
  tapgame init --key <hex> --reward 100 --cooldown 3600`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Admin, "admin", "", "admin address (default: address of --key)")
	cmd.Flags().StringVar(&opts.Reward, "reward", "", "amount paid per tap (required)")
	_ = cmd.MarkFlagRequired("reward")
	cmd.Flags().StringVar(&opts.Cooldown, "cooldown", "", "seconds between taps of one user (required)")
	_ = cmd.MarkFlagRequired("cooldown")
	cmd.Flags().StringVar(&opts.Key, "key", "", "hex private key to sign with")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	signer, err := signerFlag(opts.Key)
	if err != nil {
		return err
	}

	var admin ir.Address
	switch {
	case opts.Admin != "":
		if admin, err = parseAddressFlag("admin", opts.Admin); err != nil {
			return err
		}
	case signer != nil:
		admin = signer.Address()
	default:
		return NewExitError(ExitCommandError, "one of --admin or --key is required")
	}

	reward, err := parseAmountFlag("reward", opts.Reward)
	if err != nil {
		return err
	}
	cooldown, err := parseSecondsFlag("cooldown", opts.Cooldown)
	if err != nil {
		return err
	}

	h, err := openHost(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer h.Close()

	call, err := signed(h.engine, signer, engine.Call{
		Contract: h.cfg.ContractAddress(),
		Function: ir.FuncInitialize,
		Args: ir.NewIRObject(
			ir.O("admin", ir.IRString(admin)),
			ir.O("asset", ir.IRString(h.cfg.AssetAddress())),
			ir.O("reward", reward),
			ir.O("cooldown", cooldown),
		),
	})
	if err != nil {
		return err
	}
	return h.execute(ctx, cmd, opts.RootOptions, call)
}
