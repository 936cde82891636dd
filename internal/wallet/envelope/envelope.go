// Package envelope implements password-based envelope encryption for the
// mnemonic: PBKDF2-HMAC-SHA256 key derivation plus AES-256-GCM. The sealed
// envelope is the only form of the mnemonic allowed to leave volatile
// memory.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Version is embedded in every envelope so the KDF parameters can be
	// raised later without breaking old envelopes.
	Version byte = 1

	// PBKDF2Iterations and the remaining constants are fixed for Version 1.
	PBKDF2Iterations = 100_000
	keyLen           = 32
	saltLen          = 16
	ivLen            = 12
)

// AuthenticationError signals a wrong password or a tampered envelope: the
// AEAD tag failed to verify. It is the sole gate turning a wrong password
// into a hard failure instead of corrupted output.
type AuthenticationError struct {
	cause error
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: wrong password or tampered envelope"
}

func (e *AuthenticationError) Unwrap() error {
	return e.cause
}

// IsAuthenticationError reports whether err is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// Envelope is the at-rest form of the mnemonic. Ciphertext includes the
// GCM tag.
type Envelope struct {
	Version    byte
	Ciphertext []byte
	Salt       []byte
	IV         []byte
}

// Encrypt seals plaintext under a password-derived key with a fresh random
// salt and IV. The password slice is zeroed before returning, on every
// path.
func Encrypt(plaintext, password []byte) (*Envelope, error) {
	defer zero(password)

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errors.Wrap(err, "failed to generate iv")
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, iv, plaintext, []byte{Version})

	return &Envelope{
		Version:    Version,
		Ciphertext: ciphertext,
		Salt:       salt,
		IV:         iv,
	}, nil
}

// Decrypt re-derives the key from password and the envelope's salt and
// opens the ciphertext. A tag mismatch surfaces as AuthenticationError.
// The password slice is zeroed before returning, on every path.
func Decrypt(env *Envelope, password []byte) ([]byte, error) {
	defer zero(password)

	if env == nil {
		return nil, errors.New("envelope is nil")
	}
	if env.Version != Version {
		return nil, errors.Errorf("unsupported envelope version: %d", env.Version)
	}
	if len(env.Salt) != saltLen {
		return nil, errors.Errorf("invalid salt length: %d", len(env.Salt))
	}
	if len(env.IV) != ivLen {
		return nil, errors.Errorf("invalid iv length: %d", len(env.IV))
	}

	aead, err := newAEAD(password, env.Salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, env.IV, env.Ciphertext, []byte{env.Version})
	if err != nil {
		return nil, &AuthenticationError{cause: err}
	}
	return plaintext, nil
}

// newAEAD derives the AES-256 key and builds the GCM instance. The derived
// key is zeroed once the cipher holds its schedule.
func newAEAD(password, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(password, salt, PBKDF2Iterations, keyLen, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcm")
	}
	return aead, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
