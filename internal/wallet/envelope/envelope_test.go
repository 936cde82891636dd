package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// password returns a fresh copy: Encrypt and Decrypt consume (zero) the
// slice they are handed.
func password(s string) []byte {
	return []byte(s)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plaintext := []byte("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")

	env, err := Encrypt(append([]byte(nil), plaintext...), password("correct-horse"))
	require.NoError(t, err)

	assert.Equal(t, Version, env.Version)
	assert.Len(t, env.Salt, 16)
	assert.Len(t, env.IV, 12)
	assert.NotEmpty(t, env.Ciphertext)

	got, err := Decrypt(env, password("correct-horse"))
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecrypt_WrongPassword(t *testing.T) {
	env, err := Encrypt([]byte("secret phrase"), password("correct-horse"))
	require.NoError(t, err)

	_, err = Decrypt(env, password("wrong-horse"))
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err), "want AuthenticationError, got %v", err)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	env, err := Encrypt([]byte("secret phrase"), password("correct-horse"))
	require.NoError(t, err)

	// Flipping any single bit must fail authentication, never return a
	// different plaintext silently.
	for _, pos := range []int{0, len(env.Ciphertext) / 2, len(env.Ciphertext) - 1} {
		tampered := &Envelope{
			Version:    env.Version,
			Ciphertext: append([]byte(nil), env.Ciphertext...),
			Salt:       env.Salt,
			IV:         env.IV,
		}
		tampered.Ciphertext[pos] ^= 0x01

		_, err := Decrypt(tampered, password("correct-horse"))
		require.Error(t, err, "bit flip at %d must be rejected", pos)
		assert.True(t, IsAuthenticationError(err))
	}
}

func TestDecrypt_TamperedSaltOrIV(t *testing.T) {
	env, err := Encrypt([]byte("secret phrase"), password("correct-horse"))
	require.NoError(t, err)

	badSalt := *env
	badSalt.Salt = append([]byte(nil), env.Salt...)
	badSalt.Salt[0] ^= 0x01
	_, err = Decrypt(&badSalt, password("correct-horse"))
	assert.True(t, IsAuthenticationError(err))

	badIV := *env
	badIV.IV = append([]byte(nil), env.IV...)
	badIV.IV[0] ^= 0x01
	_, err = Decrypt(&badIV, password("correct-horse"))
	assert.True(t, IsAuthenticationError(err))
}

func TestDecrypt_UnsupportedVersion(t *testing.T) {
	env, err := Encrypt([]byte("secret"), password("pw"))
	require.NoError(t, err)

	env.Version = 99
	_, err = Decrypt(env, password("pw"))
	require.Error(t, err)
	assert.False(t, IsAuthenticationError(err))
	assert.Contains(t, err.Error(), "version")
}

func TestEncrypt_FreshSaltAndIVPerCall(t *testing.T) {
	first, err := Encrypt([]byte("same plaintext"), password("pw"))
	require.NoError(t, err)
	second, err := Encrypt([]byte("same plaintext"), password("pw"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestEncrypt_ZeroesPassword(t *testing.T) {
	pw := password("correct-horse")
	_, err := Encrypt([]byte("secret"), pw)
	require.NoError(t, err)

	for _, b := range pw {
		require.Zero(t, b, "password must be wiped after use")
	}
}

func TestDecrypt_ZeroesPasswordOnFailureToo(t *testing.T) {
	env, err := Encrypt([]byte("secret"), password("correct-horse"))
	require.NoError(t, err)

	pw := password("wrong-horse")
	_, _ = Decrypt(env, pw)
	for _, b := range pw {
		require.Zero(t, b)
	}
}
