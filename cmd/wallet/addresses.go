package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stusseligmini/walletcore/internal/config"
	"github.com/stusseligmini/walletcore/internal/wallet/addrbook"
	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
	"github.com/stusseligmini/walletcore/internal/wallet/mnemonic"
	"github.com/stusseligmini/walletcore/internal/wallet/vault"
)

func newAddressesCmd(cfg *config.ServiceConfig) *cobra.Command {
	var walletID string

	cmd := &cobra.Command{
		Use:   "addresses",
		Short: "Derive the registration addresses from the vaulted wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddresses(cfg, walletID)
		},
	}

	cmd.Flags().StringVar(&walletID, "id", "default", "Wallet identifier in the local vault")
	return cmd
}

func runAddresses(cfg *config.ServiceConfig, walletID string) error {
	phrase, _, err := unsealMnemonic(cfg, walletID)
	if err != nil {
		return err
	}
	defer zeroBytes(phrase)

	engine := mnemonic.NewEngine()
	addresses, err := addrbook.New(engine).DeriveAllAddresses(string(phrase))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(addresses, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// unsealMnemonic loads and decrypts the vaulted envelope after prompting
// for the password. The envelope is returned alongside the phrase so
// callers that export it do not load it twice.
func unsealMnemonic(cfg *config.ServiceConfig, walletID string) ([]byte, *envelope.Envelope, error) {
	v, err := vault.New(cfg.VaultDir)
	if err != nil {
		return nil, nil, err
	}
	env, err := v.Load(walletID)
	if err != nil {
		return nil, nil, err
	}

	password, err := promptPassword("Wallet password: ")
	if err != nil {
		return nil, nil, err
	}

	phrase, err := envelope.Decrypt(env, password)
	if err != nil {
		if envelope.IsAuthenticationError(err) {
			return nil, nil, fmt.Errorf("incorrect password")
		}
		return nil, nil, err
	}
	return phrase, env, nil
}
