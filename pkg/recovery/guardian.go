package recovery

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// Guardian encryption wraps an exported manifest for a recovery guardian:
// ECIES over secp256k1 with HKDF-SHA256 key derivation and AES-256-GCM.
// The wire format is EphemeralPubKey (33 bytes, compressed) || Nonce (12
// bytes) || Ciphertext (including tag), with the ephemeral public key bound
// into the ciphertext as AAD.

const (
	guardianNonceSize = 12
	guardianKeySize   = 32
)

var guardianInfo = []byte("recovery-manifest-v1")

// EncryptForGuardian encrypts the manifest bytes to the guardian's
// secp256k1 public key.
func EncryptForGuardian(manifest []byte, guardianPubKey *ecdsa.PublicKey) ([]byte, error) {
	if guardianPubKey == nil {
		return nil, errors.New("guardian public key is nil")
	}

	ephemeralKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate ephemeral key")
	}

	sharedSecret, err := sharedX(ephemeralKey, guardianPubKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute shared secret")
	}

	ephemeralPubBytes := crypto.CompressPubkey(&ephemeralKey.PublicKey)

	encKey, err := guardianKey(sharedSecret, ephemeralPubBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcm")
	}

	nonce := make([]byte, guardianNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}

	ciphertext := gcm.Seal(nil, nonce, manifest, ephemeralPubBytes)

	out := make([]byte, 0, len(ephemeralPubBytes)+len(nonce)+len(ciphertext))
	out = append(out, ephemeralPubBytes...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptFromGuardian reverses EncryptForGuardian with the guardian's
// private key.
func DecryptFromGuardian(blob []byte, guardianPrivKey *ecdsa.PrivateKey) ([]byte, error) {
	if guardianPrivKey == nil {
		return nil, errors.New("guardian private key is nil")
	}
	if len(blob) < 33+guardianNonceSize {
		return nil, errors.New("guardian blob too short")
	}

	ephemeralPubBytes := blob[:33]
	nonce := blob[33 : 33+guardianNonceSize]
	ciphertext := blob[33+guardianNonceSize:]

	ephemeralPubKey, err := crypto.DecompressPubkey(ephemeralPubBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ephemeral public key")
	}

	sharedSecret, err := sharedX(guardianPrivKey, ephemeralPubKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute shared secret")
	}

	encKey, err := guardianKey(sharedSecret, ephemeralPubBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcm")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, ephemeralPubBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt guardian blob")
	}
	return plaintext, nil
}

// sharedX computes the ECDH shared secret x-coordinate.
func sharedX(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) ([]byte, error) {
	if !crypto.S256().IsOnCurve(pub.X, pub.Y) {
		return nil, errors.New("public key is not on curve")
	}
	x, _ := crypto.S256().ScalarMult(pub.X, pub.Y, priv.D.Bytes())
	if x == nil {
		return nil, errors.New("shared secret is nil")
	}
	return x.Bytes(), nil
}

// guardianKey derives the AES key from the shared secret, salted with the
// ephemeral public key to bind the key to this exchange.
func guardianKey(secret, salt []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, secret, salt, guardianInfo)
	key := make([]byte, guardianKeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}
