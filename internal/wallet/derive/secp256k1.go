package derive

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
)

// deriveSecp256k1 walks a BIP32 path with hdkeychain and serializes the
// result per chain convention: compressed pubkey + Hash160 base58check for
// bitcoin, uncompressed pubkey + Keccak-256 last-20-bytes for EVM chains.
func deriveSecp256k1(seed []byte, c chain.Chain, path string, indices Path) (*KeyPair, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build master key")
	}

	key := master
	for _, index := range indices {
		key, err = key.Derive(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive path component %d", index)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract private key")
	}
	pubKey := privKey.PubKey()

	privateKey := privKey.Serialize()

	switch {
	case c.IsEVM():
		address := crypto.PubkeyToAddress(*pubKey.ToECDSA()).Hex()
		return &KeyPair{
			Chain:      c,
			Path:       path,
			PublicKey:  pubKey.SerializeUncompressed(),
			PrivateKey: privateKey,
			Address:    address,
		}, nil
	case c == chain.Bitcoin:
		compressed := pubKey.SerializeCompressed()
		addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(compressed), &chaincfg.MainNetParams)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build p2pkh address")
		}
		return &KeyPair{
			Chain:      c,
			Path:       path,
			PublicKey:  compressed,
			PrivateKey: privateKey,
			Address:    addr.EncodeAddress(),
		}, nil
	default:
		return nil, &chain.ErrUnsupportedChain{Chain: c.String()}
	}
}
