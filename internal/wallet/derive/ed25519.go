package derive

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
)

// ed25519MasterKey is the SLIP-10 HMAC key for the ed25519 curve.
const ed25519MasterKey = "ed25519 seed"

// deriveEd25519 walks a fully hardened SLIP-10 path and builds an ed25519
// keypair from the resulting 32-byte key. Ed25519 has no public-parent
// derivation, so every segment must be hardened.
func deriveEd25519(seed []byte, c chain.Chain, path string, indices Path) (*KeyPair, error) {
	mac := hmac.New(sha512.New, []byte(ed25519MasterKey))
	mac.Write(seed)
	sum := mac.Sum(nil)

	key := sum[:32]
	chainCode := sum[32:]

	for _, index := range indices {
		if index < HardenedKeyStart {
			return nil, errors.Errorf("ed25519 derivation requires hardened path components, got index %d", index)
		}
		key, chainCode = deriveEd25519Child(key, chainCode, index)
	}

	priv := ed25519.NewKeyFromSeed(key)
	pub := priv.Public().(ed25519.PublicKey)

	privateKey := make([]byte, len(priv))
	copy(privateKey, priv)
	publicKey := make([]byte, len(pub))
	copy(publicKey, pub)

	return &KeyPair{
		Chain:      c,
		Path:       path,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Address:    base58.Encode(publicKey),
	}, nil
}

// deriveEd25519Child performs one hardened SLIP-10 step:
// I = HMAC-SHA512(chainCode, 0x00 || key || ser32(index)).
func deriveEd25519Child(key, chainCode []byte, index uint32) (childKey, childChainCode []byte) {
	data := make([]byte, 0, 1+len(key)+4)
	data = append(data, 0x00)
	data = append(data, key...)

	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, index)
	data = append(data, indexBytes...)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)

	return sum[:32], sum[32:]
}
