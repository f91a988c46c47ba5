package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/faucet"
	"github.com/roach88/tapgame/internal/ir"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	User string
}

// FaucetView is the printed state of the faucet.
type FaucetView struct {
	Contract    string    `json:"contract"`
	Initialized bool      `json:"initialized"`
	Admin       string    `json:"admin,omitempty"`
	Asset       string    `json:"asset"`
	Reward      string    `json:"reward,omitempty"`
	Cooldown    uint64    `json:"cooldown"`
	Balance     string    `json:"balance"`
	User        *UserView `json:"user,omitempty"`
}

// UserView is the printed tap state of one user.
type UserView struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Tapped  bool   `json:"tapped"`
	LastTap uint64 `json:"last_tap"`

	// NextTap is the earliest ledger time of the next claim, absent when
	// the user never tapped or the next claim time overflows.
	NextTap *uint64 `json:"next_tap,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show faucet state",
		Long: `Show the faucet's configuration and balance.

With --user, also show the user's balance, last tap time and the ledger
time from which the user may tap again.

Examples:
  tapgame show
  tapgame show --user <address> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user address to report on")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	var user ir.Address
	if opts.User != "" {
		var err error
		if user, err = parseAddressFlag("user", opts.User); err != nil {
			return err
		}
	}

	h, err := openExisting(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer h.Close()

	contract := h.cfg.ContractAddress()
	view := FaucetView{
		Contract: string(contract),
		Asset:    string(h.cfg.AssetAddress()),
	}

	cfg, err := h.engine.Config(ctx, contract)
	switch {
	case err == nil:
		view.Initialized = true
		view.Admin = string(cfg.Admin)
		view.Asset = string(cfg.Asset)
		view.Reward = cfg.Reward.Dec()
		view.Cooldown = cfg.Cooldown
	case errors.Is(err, faucet.ErrUninitialized):
	default:
		return WrapExitError(ExitCommandError, "failed to read faucet config", err)
	}

	asset := ir.Address(view.Asset)
	bal, err := h.engine.Balance(ctx, asset, contract)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read balance", err)
	}
	view.Balance = bal.Dec()

	if user != "" {
		uv := &UserView{Address: string(user)}
		ubal, err := h.engine.Balance(ctx, asset, user)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read balance", err)
		}
		uv.Balance = ubal.Dec()

		if view.Initialized {
			last, tapped, err := h.engine.LastTap(ctx, contract, user)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read last tap", err)
			}
			uv.Tapped = tapped
			if tapped {
				uv.LastTap = last
				if last <= math.MaxUint64-view.Cooldown {
					next := last + view.Cooldown
					uv.NextTap = &next
				}
			}
		}
		view.User = uv
	}

	if opts.Format == "json" {
		return newFormatter(cmd, opts.RootOptions).Success(view)
	}
	outputShowText(cmd.OutOrStdout(), view)
	return nil
}

func outputShowText(w io.Writer, v FaucetView) {
	fmt.Fprintf(w, "Faucet: %s\n", v.Contract)
	if v.Initialized {
		fmt.Fprintf(w, "  Admin:    %s\n", v.Admin)
		fmt.Fprintf(w, "  Asset:    %s\n", v.Asset)
		fmt.Fprintf(w, "  Reward:   %s\n", v.Reward)
		fmt.Fprintf(w, "  Cooldown: %ds\n", v.Cooldown)
	} else {
		fmt.Fprintln(w, "  (not initialized)")
		fmt.Fprintf(w, "  Asset:    %s\n", v.Asset)
	}
	fmt.Fprintf(w, "  Balance:  %s\n", v.Balance)

	if v.User == nil {
		return
	}
	u := v.User
	fmt.Fprintln(w)
	fmt.Fprintf(w, "User: %s\n", u.Address)
	fmt.Fprintf(w, "  Balance:  %s\n", u.Balance)
	switch {
	case !u.Tapped:
		fmt.Fprintln(w, "  Last tap: never")
	case u.NextTap == nil:
		fmt.Fprintf(w, "  Last tap: %d\n", u.LastTap)
		fmt.Fprintln(w, "  Next tap: never")
	default:
		fmt.Fprintf(w, "  Last tap: %d\n", u.LastTap)
		fmt.Fprintf(w, "  Next tap: %s\n", strconv.FormatUint(*u.NextTap, 10))
	}
}
