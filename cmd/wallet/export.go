package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/config"
	"github.com/stusseligmini/walletcore/internal/wallet/addrbook"
	"github.com/stusseligmini/walletcore/internal/wallet/mnemonic"
	"github.com/stusseligmini/walletcore/pkg/recovery"
)

func newExportCmd(cfg *config.ServiceConfig) *cobra.Command {
	var (
		walletID  string
		chainName string
		username  string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an offline recovery manifest (ciphertext only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cfg, walletID, chainName, username, outPath)
		},
	}

	cmd.Flags().StringVar(&walletID, "id", "default", "Wallet identifier in the local vault")
	cmd.Flags().StringVar(&chainName, "chain", "ethereum", "Chain the manifest is for")
	cmd.Flags().StringVar(&username, "username", "", "Optional username to embed")
	cmd.Flags().StringVarP(&outPath, "out", "o", "recovery.json", "Output file")
	return cmd
}

func runExport(cfg *config.ServiceConfig, walletID, chainName, username, outPath string) error {
	c, err := chain.Parse(chainName)
	if err != nil {
		return err
	}

	// The manifest needs the public address, which requires one unseal.
	phrase, env, err := unsealMnemonic(cfg, walletID)
	if err != nil {
		return err
	}
	defer zeroBytes(phrase)

	addresses, err := addrbook.New(mnemonic.NewEngine()).DeriveAllAddresses(string(phrase))
	if err != nil {
		return err
	}
	address, ok := addresses[c]
	if !ok {
		return errors.Errorf("no address derived for chain %s", c)
	}

	manifest, err := recovery.Build(c, address, env, username, map[string]string{
		"walletId": walletID,
	})
	if err != nil {
		return err
	}

	data, err := manifest.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write manifest")
	}

	log.Info().Str("chain", c.String()).Str("out", outPath).Msg("recovery manifest exported")
	return nil
}
