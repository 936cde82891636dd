package hardware

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/config"
	"github.com/stusseligmini/walletcore/internal/multisig"
	"github.com/stusseligmini/walletcore/internal/wallet/derive"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := bip39.NewSeedWithErrorChecking(testMnemonic, "")
	require.NoError(t, err)
	return seed
}

func connectedDevice(t *testing.T) *EmulatedDevice {
	t.Helper()
	d := NewEmulatedDevice(testSeed(t))
	require.NoError(t, d.Connect(context.Background()))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDevice_RequiresSession(t *testing.T) {
	d := NewEmulatedDevice(testSeed(t))

	_, err := d.GetAddress(context.Background(), chain.Ethereum, derive.PathFor(chain.Ethereum, 0))
	require.Error(t, err)
	assert.True(t, IsDeviceDisconnected(err))

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, CodeDeviceDisconnected, devErr.Code)
}

func TestDevice_Locked(t *testing.T) {
	d := connectedDevice(t)
	d.Locked = true

	_, err := d.SignTransaction(context.Background(), derive.PathFor(chain.Ethereum, 0), make([]byte, 32))
	require.Error(t, err)
	assert.True(t, IsDeviceLocked(err))
}

func TestDevice_UserRejected(t *testing.T) {
	d := connectedDevice(t)
	d.RejectSigning = true

	_, err := d.SignTransaction(context.Background(), derive.PathFor(chain.Ethereum, 0), make([]byte, 32))
	require.Error(t, err)
	assert.True(t, IsUserRejected(err))

	// Reads are not gated by signing approval.
	addr, err := d.GetAddress(context.Background(), chain.Ethereum, derive.PathFor(chain.Ethereum, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, addr)
}

func TestDevice_ApprovalCancellation(t *testing.T) {
	d := connectedDevice(t)
	d.ApprovalDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.SignTransaction(ctx, derive.PathFor(chain.Ethereum, 0), make([]byte, 32))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// The device must agree with the software derivation path byte for byte.
func TestDevice_AddressMatchesSoftwareDerivation(t *testing.T) {
	d := connectedDevice(t)
	deriver := derive.NewKeyPairDeriver()
	seed := testSeed(t)

	for _, c := range chain.All() {
		path := derive.PathFor(c, 0)

		got, err := d.GetAddress(context.Background(), c, path)
		require.NoError(t, err, "chain %s", c)

		pair, err := deriver.DeriveKeyPair(seed, c, 0)
		require.NoError(t, err)
		assert.Equal(t, pair.Address, got, "chain %s", c)
		pair.Zero()
	}
}

func TestDevice_Ed25519Signature(t *testing.T) {
	d := connectedDevice(t)
	path := derive.PathFor(chain.Solana, 0)

	payload := []byte("transfer 1 lamport")
	sig, err := d.SignTransaction(context.Background(), path, payload)
	require.NoError(t, err)
	require.Len(t, sig, ed25519.SignatureSize)

	addr, err := d.GetAddress(context.Background(), chain.Solana, path)
	require.NoError(t, err)
	pub, err := base58.Decode(addr)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), payload, sig))
}

func TestDevice_Secp256k1RequiresDigest(t *testing.T) {
	d := connectedDevice(t)

	_, err := d.SignTransaction(context.Background(), derive.PathFor(chain.Ethereum, 0), []byte("not a digest"))
	assert.Error(t, err)
}

// A hardware holder participates in a multi-sig exactly like a key holder:
// its signatures recover to the device-reported address.
func TestDeviceSigner_RecoversToDeviceAddress(t *testing.T) {
	d := connectedDevice(t)
	ctx := context.Background()

	signer, err := NewDeviceSigner(ctx, d, chain.Ethereum, derive.PathFor(chain.Ethereum, 0))
	require.NoError(t, err)

	digest := [32]byte{0xde, 0xad, 0xbe, 0xef}
	sig, err := signer.SignDigest(ctx, digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	recovered, err := multisig.RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestWithTimeout_BoundsApprovalWait(t *testing.T) {
	d := connectedDevice(t)
	d.ApprovalDelay = time.Minute

	wrapped := WithTimeout(d, 20*time.Millisecond)
	_, err := wrapped.SignTransaction(context.Background(), derive.PathFor(chain.Ethereum, 0), make([]byte, 32))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeout_ZeroReturnsDeviceUnwrapped(t *testing.T) {
	d := NewEmulatedDevice(testSeed(t))
	assert.Same(t, Device(d), WithTimeout(d, 0))
}

// A timed-out Connect must not leave a half-initialized session behind.
func TestWithTimeout_ConnectTimeoutClosesSession(t *testing.T) {
	d := NewEmulatedDevice(testSeed(t))
	d.ApprovalDelay = time.Minute

	wrapped := WithTimeout(d, 20*time.Millisecond)
	err := wrapped.Connect(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = d.GetAddress(context.Background(), chain.Ethereum, derive.PathFor(chain.Ethereum, 0))
	assert.True(t, IsDeviceDisconnected(err))
}

func TestFromConfig_AppliesConfiguredBound(t *testing.T) {
	d := connectedDevice(t)
	d.ApprovalDelay = time.Minute

	wrapped := FromConfig(d, config.ServiceConfig{HardwareTimeout: 20 * time.Millisecond})
	_, err := wrapped.SignMessage(context.Background(), derive.PathFor(chain.Ethereum, 0), make([]byte, 32))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeviceSigner_PropagatesDeviceErrors(t *testing.T) {
	d := connectedDevice(t)
	ctx := context.Background()

	signer, err := NewDeviceSigner(ctx, d, chain.Ethereum, derive.PathFor(chain.Ethereum, 0))
	require.NoError(t, err)

	d.Locked = true
	_, err = signer.SignDigest(ctx, [32]byte{1})
	assert.True(t, IsDeviceLocked(err))
}
