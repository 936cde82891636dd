package hardware

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/wallet/derive"
)

// EmulatedDevice is a software-backed Device for tests and offline
// development. It derives keys from a seed exactly like the software path
// deriver would, but behind the Device contract, and can simulate the
// locked, rejecting, and disconnected failure modes as well as the delay of
// a physical button press.
type EmulatedDevice struct {
	seed    []byte
	deriver *derive.KeyPairDeriver

	mu        sync.Mutex
	connected bool

	// Locked, RejectSigning, and ApprovalDelay configure simulated
	// behavior; set them before use.
	Locked        bool
	RejectSigning bool
	ApprovalDelay time.Duration
}

// NewEmulatedDevice creates an emulated device over a copy of the seed.
func NewEmulatedDevice(seed []byte) *EmulatedDevice {
	cp := make([]byte, len(seed))
	copy(cp, seed)
	return &EmulatedDevice{seed: cp, deriver: derive.NewKeyPairDeriver()}
}

// Connect establishes the simulated session.
func (d *EmulatedDevice) Connect(ctx context.Context) error {
	if err := d.waitApproval(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

// Close tears down the simulated session.
func (d *EmulatedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

// GetAddress derives the address at the path on-device.
func (d *EmulatedDevice) GetAddress(ctx context.Context, c chain.Chain, path string) (string, error) {
	if err := d.gate(ctx); err != nil {
		return "", err
	}

	pair, err := d.deriver.DeriveAlongPath(d.seed, c, path)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive address")
	}
	defer pair.Zero()
	return pair.Address, nil
}

// SignTransaction signs the payload at the path. Secp256k1 paths produce a
// 65-byte recoverable signature over the payload (which must be a 32-byte
// digest); ed25519 paths sign the raw payload.
func (d *EmulatedDevice) SignTransaction(ctx context.Context, path string, payload []byte) ([]byte, error) {
	if err := d.gate(ctx); err != nil {
		return nil, err
	}
	if d.RejectSigning {
		return nil, &DeviceError{Code: CodeUserRejected, Message: "transaction declined on device"}
	}
	return d.sign(path, payload)
}

// SignMessage signs an arbitrary message at the path, subject to the same
// simulated approval as SignTransaction.
func (d *EmulatedDevice) SignMessage(ctx context.Context, path string, message []byte) ([]byte, error) {
	return d.SignTransaction(ctx, path, message)
}

func (d *EmulatedDevice) sign(path string, payload []byte) ([]byte, error) {
	indices, err := derive.ParsePath(path)
	if err != nil {
		return nil, errors.Wrap(err, "invalid derivation path")
	}

	// A fully hardened path is the ed25519 convention; anything else is
	// treated as a secp256k1 BIP44 path.
	allHardened := len(indices) > 0
	for _, index := range indices {
		if index < derive.HardenedKeyStart {
			allHardened = false
			break
		}
	}

	if allHardened {
		pair, err := d.deriver.DeriveAlongPath(d.seed, chain.Solana, path)
		if err != nil {
			return nil, err
		}
		defer pair.Zero()
		return ed25519.Sign(ed25519.PrivateKey(pair.PrivateKey), payload), nil
	}

	if len(payload) != 32 {
		return nil, errors.Errorf("secp256k1 signing expects a 32-byte digest, got %d bytes", len(payload))
	}
	pair, err := d.deriver.DeriveAlongPath(d.seed, chain.Ethereum, path)
	if err != nil {
		return nil, err
	}
	defer pair.Zero()

	priv, err := crypto.ToECDSA(pair.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load signing key")
	}
	return crypto.Sign(payload, priv)
}

// gate enforces session state, lock state, and the simulated approval wait.
func (d *EmulatedDevice) gate(ctx context.Context) error {
	d.mu.Lock()
	connected := d.connected
	d.mu.Unlock()

	if !connected {
		return &DeviceError{Code: CodeDeviceDisconnected, Message: "no active session"}
	}
	if d.Locked {
		return &DeviceError{Code: CodeDeviceLocked, Message: "enter PIN on device"}
	}
	return d.waitApproval(ctx)
}

// waitApproval simulates the physical confirmation delay while honoring
// caller cancellation.
func (d *EmulatedDevice) waitApproval(ctx context.Context) error {
	if d.ApprovalDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.ApprovalDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
