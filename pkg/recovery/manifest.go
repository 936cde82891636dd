// Package recovery produces the user-controlled offline export: a JSON
// manifest carrying only the encrypted envelope, never plaintext or a
// password, plus optional guardian encryption of the manifest for
// third-party custody.
package recovery

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
)

// EncryptionMethod identifies the envelope format inside a manifest.
const EncryptionMethod = "pbkdf2-sha256-aes-256-gcm"

// Manifest is the offline recovery document. EncryptedSeed is the sealed
// mnemonic envelope; decrypting it requires the holder's password, which is
// never part of the manifest.
type Manifest struct {
	Chain            string            `json:"chain"`
	WalletAddress    string            `json:"walletAddress"`
	EncryptedSeed    string            `json:"encryptedSeed"`
	Salt             string            `json:"salt"`
	IV               string            `json:"iv"`
	EnvelopeVersion  byte              `json:"envelopeVersion"`
	EncryptionMethod string            `json:"encryptionMethod"`
	Username         string            `json:"username,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	ExportedAt       time.Time         `json:"exportedAt"`
}

// Build assembles a manifest for one chain's wallet from its stored
// envelope.
func Build(c chain.Chain, walletAddress string, env *envelope.Envelope, username string, metadata map[string]string) (*Manifest, error) {
	if env == nil {
		return nil, errors.New("envelope is required")
	}
	if walletAddress == "" {
		return nil, errors.New("wallet address is required")
	}
	if _, err := chain.Parse(c.String()); err != nil {
		return nil, err
	}

	return &Manifest{
		Chain:            c.String(),
		WalletAddress:    walletAddress,
		EncryptedSeed:    base64.StdEncoding.EncodeToString(env.Ciphertext),
		Salt:             hex.EncodeToString(env.Salt),
		IV:               hex.EncodeToString(env.IV),
		EnvelopeVersion:  env.Version,
		EncryptionMethod: EncryptionMethod,
		Username:         username,
		Metadata:         metadata,
		ExportedAt:       time.Now().UTC(),
	}, nil
}

// Envelope reconstructs the encrypted envelope from a manifest for import.
func (m *Manifest) Envelope() (*envelope.Envelope, error) {
	if m.EncryptionMethod != EncryptionMethod {
		return nil, errors.Errorf("unsupported encryption method: %s", m.EncryptionMethod)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(m.EncryptedSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode encrypted seed")
	}
	salt, err := hex.DecodeString(m.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode salt")
	}
	iv, err := hex.DecodeString(m.IV)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode iv")
	}
	return &envelope.Envelope{
		Version:    m.EnvelopeVersion,
		Ciphertext: ciphertext,
		Salt:       salt,
		IV:         iv,
	}, nil
}

// Marshal renders the manifest as indented JSON for file export.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal manifest")
	}
	return data, nil
}

// Unmarshal parses a manifest from its JSON export.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal manifest")
	}
	return &m, nil
}
