package recovery

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func sealedEnvelope(t *testing.T) *envelope.Envelope {
	t.Helper()
	env, err := envelope.Encrypt([]byte(testMnemonic), []byte("correct horse"))
	require.NoError(t, err)
	return env
}

func TestManifestRoundTrip(t *testing.T) {
	env := sealedEnvelope(t)

	m, err := Build(chain.Ethereum, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", env,
		"alice", map[string]string{"export": "cold-storage"})
	require.NoError(t, err)
	assert.Equal(t, "ethereum", m.Chain)
	assert.Equal(t, EncryptionMethod, m.EncryptionMethod)
	assert.Equal(t, envelope.Version, m.EnvelopeVersion)

	data, err := m.Marshal()
	require.NoError(t, err)

	parsed, err := Unmarshal(data)
	require.NoError(t, err)

	restored, err := parsed.Envelope()
	require.NoError(t, err)
	assert.Equal(t, env.Ciphertext, restored.Ciphertext)
	assert.Equal(t, env.Salt, restored.Salt)
	assert.Equal(t, env.IV, restored.IV)

	// The holder's password still unseals the restored envelope.
	plaintext, err := envelope.Decrypt(restored, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, string(plaintext))
}

func TestManifestNeverContainsPlaintext(t *testing.T) {
	env := sealedEnvelope(t)

	m, err := Build(chain.Ethereum, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", env, "", nil)
	require.NoError(t, err)

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "abandon")
	assert.NotContains(t, string(data), "correct horse")
}

func TestBuild_Validation(t *testing.T) {
	env := sealedEnvelope(t)

	_, err := Build(chain.Ethereum, "", env, "", nil)
	assert.Error(t, err)

	_, err = Build(chain.Ethereum, "0xaa", nil, "", nil)
	assert.Error(t, err)

	_, err = Build(chain.Chain("dogecoin"), "0xaa", env, "", nil)
	assert.Error(t, err)
}

func TestEnvelope_RejectsUnknownMethod(t *testing.T) {
	env := sealedEnvelope(t)
	m, err := Build(chain.Ethereum, "0xaa", env, "", nil)
	require.NoError(t, err)

	m.EncryptionMethod = "rot13"
	_, err = m.Envelope()
	assert.Error(t, err)
}

func TestGuardianRoundTrip(t *testing.T) {
	guardian, err := crypto.GenerateKey()
	require.NoError(t, err)

	env := sealedEnvelope(t)
	m, err := Build(chain.Ethereum, "0xaa", env, "alice", nil)
	require.NoError(t, err)
	manifest, err := m.Marshal()
	require.NoError(t, err)

	blob, err := EncryptForGuardian(manifest, &guardian.PublicKey)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "encryptedSeed")

	plaintext, err := DecryptFromGuardian(blob, guardian)
	require.NoError(t, err)
	assert.Equal(t, manifest, plaintext)

	var restored Manifest
	require.NoError(t, json.Unmarshal(plaintext, &restored))
	assert.Equal(t, "alice", restored.Username)
}

func TestGuardian_WrongKeyFails(t *testing.T) {
	guardian, err := crypto.GenerateKey()
	require.NoError(t, err)
	impostor, err := crypto.GenerateKey()
	require.NoError(t, err)

	blob, err := EncryptForGuardian([]byte("manifest"), &guardian.PublicKey)
	require.NoError(t, err)

	_, err = DecryptFromGuardian(blob, impostor)
	assert.Error(t, err)
}

func TestGuardian_TamperDetected(t *testing.T) {
	guardian, err := crypto.GenerateKey()
	require.NoError(t, err)

	blob, err := EncryptForGuardian([]byte(strings.Repeat("m", 64)), &guardian.PublicKey)
	require.NoError(t, err)

	// Flip one bit in the ciphertext body and one in the bound ephemeral
	// key; both must fail authentication.
	flipped := append([]byte(nil), blob...)
	flipped[len(flipped)-1] ^= 0x01
	_, err = DecryptFromGuardian(flipped, guardian)
	assert.Error(t, err)

	flipped = append([]byte(nil), blob...)
	flipped[1] ^= 0x01
	_, err = DecryptFromGuardian(flipped, guardian)
	assert.Error(t, err)

	_, err = DecryptFromGuardian(blob[:10], guardian)
	assert.Error(t, err)
}

func TestGuardian_FreshEphemeralPerCall(t *testing.T) {
	guardian, err := crypto.GenerateKey()
	require.NoError(t, err)

	a, err := EncryptForGuardian([]byte("manifest"), &guardian.PublicKey)
	require.NoError(t, err)
	b, err := EncryptForGuardian([]byte("manifest"), &guardian.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, a[:33], b[:33])
}
