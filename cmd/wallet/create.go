package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/config"
	"github.com/stusseligmini/walletcore/internal/wallet/addrbook"
	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
	"github.com/stusseligmini/walletcore/internal/wallet/mnemonic"
	"github.com/stusseligmini/walletcore/internal/wallet/vault"
)

func newCreateCmd(cfg *config.ServiceConfig) *cobra.Command {
	var walletID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a new wallet, encrypt it, and store it in the local vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cfg, walletID)
		},
	}

	cmd.Flags().StringVar(&walletID, "id", "default", "Wallet identifier in the local vault")
	return cmd
}

func runCreate(cfg *config.ServiceConfig, walletID string) error {
	v, err := vault.New(cfg.VaultDir)
	if err != nil {
		return err
	}

	exists, err := v.Exists(walletID)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("wallet %q already exists in the vault", walletID)
	}

	engine := mnemonic.NewEngine()
	phrase, err := engine.Generate()
	if err != nil {
		return err
	}

	addresses, err := addrbook.New(engine).DeriveAllAddresses(phrase)
	if err != nil {
		return err
	}

	fmt.Println("Recovery phrase (write it down, it is shown once):")
	fmt.Println()
	fmt.Printf("  %s\n\n", phrase)
	fmt.Println("Addresses:")
	fmt.Print(formatAddresses(addresses))
	fmt.Println()

	password, err := promptNewPassword()
	if err != nil {
		return err
	}

	env, err := envelope.Encrypt([]byte(phrase), password)
	if err != nil {
		return err
	}
	if err := v.Save(walletID, env); err != nil {
		return err
	}

	log.Info().Str("wallet_id", walletID).Msg("wallet created and sealed into vault")
	return nil
}

// formatAddresses renders the per-chain addresses in the stable supported
// order, one line per chain.
func formatAddresses(addresses map[chain.Chain]string) string {
	var sb strings.Builder
	for _, c := range chain.All() {
		if addr, ok := addresses[c]; ok {
			fmt.Fprintf(&sb, "  %-10s %s\n", c, addr)
		}
	}
	return sb.String()
}

// promptNewPassword reads a new password twice without echo. The returned
// slice is consumed (and zeroed) by the envelope cipher.
func promptNewPassword() ([]byte, error) {
	first, err := promptPassword("Choose a password: ")
	if err != nil {
		return nil, err
	}
	second, err := promptPassword("Repeat the password: ")
	if err != nil {
		zeroBytes(first)
		return nil, err
	}
	defer zeroBytes(second)

	if string(first) != string(second) {
		zeroBytes(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}

func promptPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run interactively to enter the password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read password")
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	return raw, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
