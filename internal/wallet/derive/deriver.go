package derive

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
)

// SeedLen is the required seed length in bytes, matching the output of
// BIP39 mnemonic-to-seed stretching.
const SeedLen = 64

// ErrInvalidSeed is returned when the seed is not exactly SeedLen bytes.
type ErrInvalidSeed struct {
	Len int
}

func (e *ErrInvalidSeed) Error() string {
	return fmt.Sprintf("invalid seed length: got %d bytes, want %d", e.Len, SeedLen)
}

// IsInvalidSeed reports whether err is an ErrInvalidSeed.
func IsInvalidSeed(err error) bool {
	var target *ErrInvalidSeed
	return errors.As(err, &target)
}

// KeyPair is a chain-tagged keypair. PrivateKey ownership stays with the
// caller of the derivation; it must never be logged, serialized, or sent
// over a network boundary. Call Zero once signing material is no longer
// needed.
type KeyPair struct {
	Chain      chain.Chain
	Path       string
	PublicKey  []byte
	PrivateKey []byte
	Address    string
}

// Zero wipes the private key bytes in place.
func (k *KeyPair) Zero() {
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
}

// KeyPairDeriver derives chain-native keypairs from a seed.
type KeyPairDeriver struct{}

// NewKeyPairDeriver creates a deriver.
func NewKeyPairDeriver() *KeyPairDeriver {
	return &KeyPairDeriver{}
}

// DeriveKeyPair derives the keypair for (seed, chain, accountIndex) along
// the chain's fixed derivation path. The seed must be the 64-byte BIP39
// seed. Identical inputs always produce bit-identical output.
func (d *KeyPairDeriver) DeriveKeyPair(seed []byte, c chain.Chain, accountIndex uint32) (*KeyPair, error) {
	return d.DeriveAlongPath(seed, c, PathFor(c, accountIndex))
}

// DeriveAlongPath derives the keypair for an explicit path string. Used by
// hardware adapters and recovery tooling that carry their own paths.
func (d *KeyPairDeriver) DeriveAlongPath(seed []byte, c chain.Chain, path string) (*KeyPair, error) {
	if _, err := chain.Parse(c.String()); err != nil {
		return nil, err
	}
	if len(seed) != SeedLen {
		return nil, &ErrInvalidSeed{Len: len(seed)}
	}

	indices, err := ParsePath(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse derivation path")
	}

	switch c.Curve() {
	case chain.CurveEd25519:
		return deriveEd25519(seed, c, path, indices)
	default:
		return deriveSecp256k1(seed, c, path, indices)
	}
}
