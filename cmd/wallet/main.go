// Command wallet is the operational CLI over the wallet core: create a
// wallet, inspect registration addresses, export a recovery manifest, and
// manage the local vault.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stusseligmini/walletcore/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.DefaultServiceConfigFromEnv()

	root := &cobra.Command{
		Use:           "wallet",
		Short:         "Non-custodial wallet key management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCreateCmd(&cfg))
	root.AddCommand(newAddressesCmd(&cfg))
	root.AddCommand(newSignCmd(&cfg))
	root.AddCommand(newExportCmd(&cfg))
	root.AddCommand(newVaultCmd(&cfg))

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
