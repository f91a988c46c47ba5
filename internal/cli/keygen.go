package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tapgame/internal/auth"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Seed string
}

// KeyView is the printed form of a generated key.
type KeyView struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an account key",
		Long: `Generate a secp256k1 account key and print its address.

The private key is what --key expects on init and tap. With --seed the
key is derived from the seed, which is useful for repeatable demos and
must not be used for real funds.

Examples:
  tapgame keygen
  tapgame keygen --seed alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Seed, "seed", "", "derive the key from a seed instead of randomness")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	var (
		signer *auth.Signer
		err    error
	)
	if opts.Seed != "" {
		signer = auth.SignerFromSeed(opts.Seed)
	} else if signer, err = auth.GenerateSigner(); err != nil {
		return WrapExitError(ExitCommandError, "failed to generate key", err)
	}

	view := KeyView{
		Address:    string(signer.Address()),
		PublicKey:  signer.PublicKeyHex(),
		PrivateKey: signer.PrivateKeyHex(),
	}

	if opts.Format == "json" {
		return newFormatter(cmd, opts.RootOptions).Success(view)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Address:     %s\n", view.Address)
	fmt.Fprintf(w, "Public key:  %s\n", view.PublicKey)
	fmt.Fprintf(w, "Private key: %s\n", view.PrivateKey)
	return nil
}
