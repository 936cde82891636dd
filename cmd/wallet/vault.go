package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stusseligmini/walletcore/internal/config"
	"github.com/stusseligmini/walletcore/internal/wallet/vault"
)

func newVaultCmd(cfg *config.ServiceConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Local vault management",
	}
	cmd.AddCommand(newVaultStatusCmd(cfg))
	cmd.AddCommand(newVaultClearCmd(cfg))
	return cmd
}

func newVaultStatusCmd(cfg *config.ServiceConfig) *cobra.Command {
	var walletID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether an envelope is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := vault.New(cfg.VaultDir)
			if err != nil {
				return err
			}
			exists, err := v.Exists(walletID)
			if err != nil {
				return err
			}
			if exists {
				fmt.Printf("wallet %q: envelope present\n", walletID)
			} else {
				fmt.Printf("wallet %q: no envelope\n", walletID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&walletID, "id", "default", "Wallet identifier in the local vault")
	return cmd
}

func newVaultClearCmd(cfg *config.ServiceConfig) *cobra.Command {
	var walletID string
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored envelope (irreversible without the recovery phrase)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear without --yes")
			}
			v, err := vault.New(cfg.VaultDir)
			if err != nil {
				return err
			}
			if err := v.Clear(walletID); err != nil {
				return err
			}
			log.Info().Str("wallet_id", walletID).Msg("vault entry cleared")
			return nil
		},
	}

	cmd.Flags().StringVar(&walletID, "id", "default", "Wallet identifier in the local vault")
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the deletion")
	return cmd
}
