package main

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/config"
	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
	"github.com/stusseligmini/walletcore/internal/wallet/signing"
	"github.com/stusseligmini/walletcore/internal/wallet/vault"
)

func newSignCmd(cfg *config.ServiceConfig) *cobra.Command {
	var (
		walletID     string
		chainName    string
		toAddress    string
		amountStr    string
		nonce        uint64
		gasPriceStr  string
		gasLimit     uint64
		accountIndex uint32
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a single-party transfer with the vaulted wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := chain.Parse(chainName)
			if err != nil {
				return err
			}
			amount, ok := new(big.Int).SetString(amountStr, 10)
			if !ok {
				return errors.Errorf("invalid amount: %q", amountStr)
			}
			var gasPrice *big.Int
			if gasPriceStr != "" {
				gasPrice, ok = new(big.Int).SetString(gasPriceStr, 10)
				if !ok {
					return errors.Errorf("invalid gas price: %q", gasPriceStr)
				}
			}

			v, err := vault.New(cfg.VaultDir)
			if err != nil {
				return err
			}

			password, err := promptPassword("Wallet password: ")
			if err != nil {
				return err
			}

			signed, err := signing.NewService(v).SignTransfer(walletID, password, &signing.TransferIntent{
				Chain:        c,
				AccountIndex: accountIndex,
				To:           toAddress,
				Amount:       amount,
				Nonce:        nonce,
				GasPrice:     gasPrice,
				GasLimit:     gasLimit,
			})
			if err != nil {
				if envelope.IsAuthenticationError(err) {
					return errors.New("incorrect password")
				}
				return err
			}

			fmt.Printf("0x%s\n", hex.EncodeToString(signed))
			return nil
		},
	}

	cmd.Flags().StringVar(&walletID, "id", "default", "Wallet identifier in the local vault")
	cmd.Flags().StringVar(&chainName, "chain", "ethereum", "Chain to sign for")
	cmd.Flags().StringVar(&toAddress, "to", "", "Destination address")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Amount in the chain's base unit")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "Account nonce")
	cmd.Flags().StringVar(&gasPriceStr, "gas-price", "", "Gas price (optional)")
	cmd.Flags().Uint64Var(&gasLimit, "gas-limit", 0, "Gas limit (optional)")
	cmd.Flags().Uint32Var(&accountIndex, "account", 0, "Account index")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
