// Package mnemonic generates and validates BIP39 mnemonics and stretches
// them into wallet seeds. The entropy source is an injected capability so
// tests can substitute a seeded reader; production callers use the
// crypto/rand backed default.
package mnemonic

import (
	"crypto/rand"
	"io"
	"strings"

	"github.com/pkg/errors"
	bip39 "github.com/tyler-smith/go-bip39"
)

// EntropyBits is the entropy size for 12-word mnemonics.
const EntropyBits = 128

// ErrInvalidMnemonic is returned when a candidate phrase fails word-list
// membership or checksum validation.
var ErrInvalidMnemonic = errors.New("invalid mnemonic: bad word list membership or checksum")

// Engine produces and validates mnemonics. The zero value is not usable;
// construct with NewEngine.
type Engine struct {
	entropy io.Reader
}

// NewEngine creates an engine backed by the operating system CSPRNG.
func NewEngine() *Engine {
	return &Engine{entropy: rand.Reader}
}

// NewEngineWithEntropy creates an engine reading entropy from the given
// source. Intended for deterministic tests only.
func NewEngineWithEntropy(entropy io.Reader) *Engine {
	return &Engine{entropy: entropy}
}

// Generate produces a new 12-word mnemonic from EntropyBits of randomness.
// Failure to read sufficient entropy is fatal to wallet creation: there is
// no fallback to a weaker source.
func (e *Engine) Generate() (string, error) {
	entropy := make([]byte, EntropyBits/8)
	if _, err := io.ReadFull(e.entropy, entropy); err != nil {
		return "", errors.Wrap(err, "failed to read entropy, aborting wallet creation")
	}

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode mnemonic")
	}
	return phrase, nil
}

// Validate checks word-list membership and checksum validity. Used both
// for user re-entry confirmation and for rejecting malformed imports.
func (e *Engine) Validate(candidate string) bool {
	return bip39.IsMnemonicValid(normalize(candidate))
}

// Seed stretches a mnemonic into the 64-byte wallet seed with an empty
// passphrase. The result is transient: recompute on demand, never store.
func (e *Engine) Seed(phrase string) ([]byte, error) {
	normalized := normalize(phrase)
	seed, err := bip39.NewSeedWithErrorChecking(normalized, "")
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	return seed, nil
}

// Zero wipes a seed or other secret byte slice in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func normalize(phrase string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(phrase)), " ")
}
