// Command tapgame runs the tap-to-earn faucet host.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tapgame/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
