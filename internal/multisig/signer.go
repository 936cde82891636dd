package multisig

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// TxSigner is the private signing capability a party brings to Propose and
// Sign. Software wallets back it with a derived key; the hardware adapter
// satisfies it by delegating to the external device.
type TxSigner interface {
	// Address is the signer's account address.
	Address() string
	// SignDigest produces a 65-byte recoverable signature over the
	// canonical transaction digest.
	SignDigest(ctx context.Context, digest [32]byte) ([]byte, error)
}

// KeySigner signs with an in-memory secp256k1 private key derived from the
// holder's mnemonic.
type KeySigner struct {
	priv    *btcec.PrivateKey
	address string
}

// NewKeySigner wraps a 32-byte secp256k1 private key. The caller retains
// ownership of the key bytes and remains responsible for zeroing them.
func NewKeySigner(privateKey []byte) (*KeySigner, error) {
	if len(privateKey) != 32 {
		return nil, errors.Errorf("invalid private key length: %d", len(privateKey))
	}
	priv, _ := btcec.PrivKeyFromBytes(privateKey)
	address := crypto.PubkeyToAddress(priv.ToECDSA().PublicKey).Hex()
	return &KeySigner{priv: priv, address: address}, nil
}

// Address returns the signer's account address.
func (s *KeySigner) Address() string {
	return s.address
}

// SignDigest signs the digest, producing r || s || v with v in {0, 1}.
func (s *KeySigner) SignDigest(_ context.Context, digest [32]byte) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.New("signer key has been zeroed")
	}
	key := s.priv.ToECDSA()
	// geth's non-cgo Sign compares the curve by identity, so the btcec
	// curve tag must be swapped for geth's equivalent secp256k1 instance.
	key.Curve = crypto.S256()
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign digest")
	}
	return sig, nil
}

// Zero wipes the wrapped private key. The signer is unusable afterwards.
func (s *KeySigner) Zero() {
	if s.priv != nil {
		s.priv.Zero()
		s.priv = nil
	}
}

// RecoverSigner recovers the account address that produced sig over digest.
func RecoverSigner(digest [32]byte, sig []byte) (string, error) {
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return "", errors.Wrap(err, "failed to recover public key")
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
