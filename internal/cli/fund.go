package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/engine"
	"github.com/roach88/tapgame/internal/ir"
)

// FundOptions holds flags for the fund command.
type FundOptions struct {
	*RootOptions
	Amount string
	To     string
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FundOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Mint asset to an account",
		Long: `Mint the configured asset to an account, by default the faucet itself.

Taps are paid out of the faucet's own balance, so a faucet pays nothing
until it is funded.

Examples:
  tapgame fund --amount 1000
  tapgame fund --amount 50 --to <address>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount to mint (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&opts.To, "to", "", "recipient address (default: the faucet)")

	return cmd
}

func runFund(opts *FundOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	amount, err := parseAmountFlag("amount", opts.Amount)
	if err != nil {
		return err
	}

	var to ir.Address
	if opts.To != "" {
		if to, err = parseAddressFlag("to", opts.To); err != nil {
			return err
		}
	}

	h, err := openHost(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer h.Close()

	if to == "" {
		to = h.cfg.ContractAddress()
	}

	call, err := signed(h.engine, nil, engine.Call{
		Contract: h.cfg.AssetAddress(),
		Function: ir.FuncMint,
		Args: ir.NewIRObject(
			ir.O("to", ir.IRString(to)),
			ir.O("amount", amount),
		),
	})
	if err != nil {
		return err
	}
	return h.execute(ctx, cmd, opts.RootOptions, call)
}
