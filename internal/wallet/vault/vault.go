// Package vault persists encrypted envelopes on the holder's device. One
// record per wallet identifier, local-only, never transmitted. Writes go
// through a temp file and rename so a crash mid-write leaves either the
// old or the new envelope loadable, never a torn one.
package vault

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
)

// ErrNotFound is returned by Load when no envelope is stored for the
// wallet identifier.
var ErrNotFound = errors.New("no envelope stored for wallet")

// record is the on-disk JSON shape: ciphertext base64, salt and iv hex.
type record struct {
	Version    byte   `json:"version"`
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
}

// Vault stores envelopes under a local directory, one file per wallet id.
type Vault struct {
	dir string

	mu sync.Mutex
}

// New creates a vault rooted at dir, creating the directory if needed.
func New(dir string) (*Vault, error) {
	if dir == "" {
		return nil, errors.New("vault directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create vault directory")
	}
	return &Vault{dir: dir}, nil
}

// Save writes the envelope for walletID, atomically replacing any previous
// record. Concurrent Save/Clear calls are serialized.
func (v *Vault) Save(walletID string, env *envelope.Envelope) error {
	if env == nil {
		return errors.New("envelope is nil")
	}
	path, err := v.path(walletID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record{
		Version:    env.Version,
		Ciphertext: base64.StdEncoding.EncodeToString(env.Ciphertext),
		Salt:       hex.EncodeToString(env.Salt),
		IV:         hex.EncodeToString(env.IV),
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal envelope record")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	tmp, err := os.CreateTemp(v.dir, ".envelope-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write envelope")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to sync envelope")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to set envelope permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to commit envelope")
	}

	log.Debug().Str("wallet_id", walletID).Msg("envelope saved")
	return nil
}

// Load reads the envelope for walletID. Returns ErrNotFound when none is
// stored.
func (v *Vault) Load(walletID string) (*envelope.Envelope, error) {
	path, err := v.path(walletID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to read envelope")
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal envelope record")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ciphertext")
	}
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode salt")
	}
	iv, err := hex.DecodeString(rec.IV)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode iv")
	}

	return &envelope.Envelope{
		Version:    rec.Version,
		Ciphertext: ciphertext,
		Salt:       salt,
		IV:         iv,
	}, nil
}

// Exists reports whether an envelope is stored for walletID.
func (v *Vault) Exists(walletID string) (bool, error) {
	path, err := v.path(walletID)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to stat envelope")
	}
	return true, nil
}

// Clear removes the stored envelope for walletID. Removing a missing
// envelope is not an error.
func (v *Vault) Clear(walletID string) error {
	path, err := v.path(walletID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove envelope")
	}
	log.Debug().Str("wallet_id", walletID).Msg("envelope cleared")
	return nil
}

// path validates the wallet id and maps it to its envelope file. The id
// must not be able to escape the vault directory.
func (v *Vault) path(walletID string) (string, error) {
	if walletID == "" {
		return "", errors.New("wallet id is required")
	}
	if strings.ContainsAny(walletID, "/\\") || strings.Contains(walletID, "..") {
		return "", errors.Errorf("invalid wallet id: %q", walletID)
	}
	return filepath.Join(v.dir, walletID+".json"), nil
}
