package hardware

import (
	"context"
	"time"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/config"
)

// timeoutDevice bounds every device call, covering the wait on a physical
// confirmation. A device that never answers surfaces as a context error
// instead of hanging the caller.
type timeoutDevice struct {
	device  Device
	timeout time.Duration
}

// WithTimeout wraps a device so every call completes within the given
// bound. A non-positive timeout returns the device unwrapped.
func WithTimeout(d Device, timeout time.Duration) Device {
	if timeout <= 0 {
		return d
	}
	return &timeoutDevice{device: d, timeout: timeout}
}

// FromConfig wraps the device with the service-configured approval bound.
func FromConfig(d Device, cfg config.ServiceConfig) Device {
	return WithTimeout(d, cfg.HardwareTimeout)
}

func (t *timeoutDevice) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.device.Connect(ctx); err != nil {
		// A cancelled Connect must not leave a half-initialized session.
		_ = t.device.Close()
		return err
	}
	return nil
}

func (t *timeoutDevice) Close() error {
	return t.device.Close()
}

func (t *timeoutDevice) GetAddress(ctx context.Context, c chain.Chain, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.device.GetAddress(ctx, c, path)
}

func (t *timeoutDevice) SignTransaction(ctx context.Context, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.device.SignTransaction(ctx, path, payload)
}

func (t *timeoutDevice) SignMessage(ctx context.Context, path string, message []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.device.SignMessage(ctx, path, message)
}
