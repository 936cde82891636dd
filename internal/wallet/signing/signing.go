// Package signing is the single-party signing boundary. UI and API layers
// hand in a wallet identifier, the holder's password, and a transfer
// intent; they get back a signed transaction blob or a typed
// AuthenticationError. The mnemonic is unsealed from the vault, stretched
// to a seed, used for one derivation, and wiped before the call returns.
package signing

import (
	"crypto/ed25519"
	"math/big"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/multisig"
	"github.com/stusseligmini/walletcore/internal/wallet/derive"
	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
	"github.com/stusseligmini/walletcore/internal/wallet/mnemonic"
	"github.com/stusseligmini/walletcore/internal/wallet/vault"
)

// TransferIntent describes a single-party value transfer to sign.
type TransferIntent struct {
	Chain        chain.Chain
	AccountIndex uint32
	To           string
	Amount       *big.Int
	Nonce        uint64
	GasPrice     *big.Int
	GasLimit     uint64
	Data         []byte
}

// Service signs on behalf of a vaulted wallet. It holds no key material
// between calls.
type Service struct {
	vault   *vault.Vault
	engine  *mnemonic.Engine
	deriver *derive.KeyPairDeriver
}

// NewService creates a signing service over the local vault.
func NewService(v *vault.Vault) *Service {
	return &Service{
		vault:   v,
		engine:  mnemonic.NewEngine(),
		deriver: derive.NewKeyPairDeriver(),
	}
}

// SignTransfer unseals the wallet, re-derives the signing key for the
// intent's chain, and returns the broadcastable signed transaction. A wrong
// password surfaces as envelope.AuthenticationError. Only EVM chains carry
// a transfer encoding here; other chains sign through SignMessage or the
// multi-sig coordinator.
func (s *Service) SignTransfer(walletID string, password []byte, intent *TransferIntent) ([]byte, error) {
	if intent == nil {
		return nil, errors.New("transfer intent is required")
	}

	adapter, err := chain.NewEVMAdapter(intent.Chain)
	if err != nil {
		return nil, err
	}

	pair, err := s.unsealKeyPair(walletID, password, intent.Chain, intent.AccountIndex)
	if err != nil {
		return nil, err
	}
	defer pair.Zero()

	req := &chain.TransferRequest{
		Nonce:    intent.Nonce,
		To:       intent.To,
		Amount:   intent.Amount,
		GasPrice: intent.GasPrice,
		GasLimit: intent.GasLimit,
		Data:     intent.Data,
	}
	digest, err := adapter.SigningHash(req)
	if err != nil {
		return nil, err
	}

	priv, err := gethcrypto.ToECDSA(pair.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load signing key")
	}
	sig, err := gethcrypto.Sign(digest[:], priv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transfer")
	}

	signed, err := adapter.EncodeSignedTransfer(req, sig)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("wallet_id", walletID).
		Str("chain", intent.Chain.String()).
		Uint64("nonce", intent.Nonce).
		Msg("transfer signed")
	return signed, nil
}

// SignMessage signs an arbitrary message with the wallet's key for the
// chain: raw ed25519 for ed25519 chains, a recoverable secp256k1 signature
// over the Keccak-256 digest otherwise.
func (s *Service) SignMessage(walletID string, password []byte, c chain.Chain, accountIndex uint32, message []byte) ([]byte, error) {
	pair, err := s.unsealKeyPair(walletID, password, c, accountIndex)
	if err != nil {
		return nil, err
	}
	defer pair.Zero()

	if c.Curve() == chain.CurveEd25519 {
		return ed25519.Sign(ed25519.PrivateKey(pair.PrivateKey), message), nil
	}

	priv, err := gethcrypto.ToECDSA(pair.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load signing key")
	}
	return gethcrypto.Sign(gethcrypto.Keccak256(message), priv)
}

// MultiSigSigner unseals the wallet and returns the signer capability a
// holder brings to the multi-sig coordinator. The caller must Zero the
// signer once the propose or sign call completes.
func (s *Service) MultiSigSigner(walletID string, password []byte, c chain.Chain, accountIndex uint32) (*multisig.KeySigner, error) {
	if c.Curve() != chain.CurveSecp256k1 {
		return nil, &chain.ErrUnsupportedChain{Chain: c.String()}
	}

	pair, err := s.unsealKeyPair(walletID, password, c, accountIndex)
	if err != nil {
		return nil, err
	}
	defer pair.Zero()

	return multisig.NewKeySigner(pair.PrivateKey)
}

// unsealKeyPair runs the full unseal chain: vault load, envelope decrypt,
// seed stretch, key derivation. Every intermediate secret is wiped before
// returning; the caller owns (and must Zero) the returned pair.
func (s *Service) unsealKeyPair(walletID string, password []byte, c chain.Chain, accountIndex uint32) (*derive.KeyPair, error) {
	env, err := s.vault.Load(walletID)
	if err != nil {
		return nil, err
	}

	phrase, err := envelope.Decrypt(env, password)
	if err != nil {
		return nil, err
	}
	defer mnemonic.Zero(phrase)

	seed, err := s.engine.Seed(string(phrase))
	if err != nil {
		return nil, err
	}
	defer mnemonic.Zero(seed)

	return s.deriver.DeriveKeyPair(seed, c, accountIndex)
}
