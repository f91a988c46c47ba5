package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/engine"
	"github.com/roach88/tapgame/internal/ir"
)

// TapOptions holds flags for the tap command.
type TapOptions struct {
	*RootOptions
	Key  string
	User string
}

// NewTapCommand creates the tap command.
func NewTapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tap",
		Short: "Claim the tap reward",
		Long: `Claim the reward for a user, signed with the user's key.

The claim succeeds when the user never tapped or the last tap is at least
one cooldown old. A tap without a matching signature fails with
AuthorizationMissing; --user without --key exists to show exactly that.

Exit codes:
  0 - Reward paid
  1 - Rejected by the contract (CooldownActive, AuthorizationMissing, ...)
  2 - Command error (invalid flags, database, etc.)

Examples:
  tapgame tap --key <hex>
  tapgame tap --key <hex> --ledger-time 3600 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTap(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "hex private key of the user")
	cmd.Flags().StringVar(&opts.User, "user", "", "user address (default: address of --key)")

	return cmd
}

func runTap(opts *TapOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	signer, err := signerFlag(opts.Key)
	if err != nil {
		return err
	}

	var user ir.Address
	switch {
	case opts.User != "":
		if user, err = parseAddressFlag("user", opts.User); err != nil {
			return err
		}
	case signer != nil:
		user = signer.Address()
	default:
		return NewExitError(ExitCommandError, "one of --key or --user is required")
	}

	h, err := openHost(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer h.Close()

	call, err := signed(h.engine, signer, engine.Call{
		Contract: h.cfg.ContractAddress(),
		Function: ir.FuncTap,
		Args:     ir.NewIRObject(ir.O("user", ir.IRString(user))),
	})
	if err != nil {
		return err
	}
	return h.execute(ctx, cmd, opts.RootOptions, call)
}
