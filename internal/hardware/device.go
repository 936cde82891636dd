// Package hardware adapts external signing devices to the same contract as
// the software path deriver: key material never enters process memory, and
// every operation is delegated to the device. Calls may block on physical
// user interaction, so they all take a context and honor cancellation.
package hardware

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
)

// DeviceErrorCode distinguishes the failure modes a device can surface.
// They are reported distinctly, never collapsed into a generic error, so
// callers can tell the user to unlock, confirm, or reconnect.
type DeviceErrorCode int

const (
	// CodeDeviceLocked means the device requires a PIN or unlock first.
	CodeDeviceLocked DeviceErrorCode = iota + 1
	// CodeUserRejected means the holder declined the operation on-device.
	CodeUserRejected
	// CodeDeviceDisconnected means the transport to the device dropped.
	CodeDeviceDisconnected
)

func (c DeviceErrorCode) String() string {
	switch c {
	case CodeDeviceLocked:
		return "DEVICE_LOCKED"
	case CodeUserRejected:
		return "USER_REJECTED"
	case CodeDeviceDisconnected:
		return "DEVICE_DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// DeviceError is a typed hardware failure.
type DeviceError struct {
	Code    DeviceErrorCode
	Message string
}

func (e *DeviceError) Error() string {
	if e.Message == "" {
		return "hardware device error: " + e.Code.String()
	}
	return "hardware device error: " + e.Code.String() + ": " + e.Message
}

// IsDeviceLocked reports whether err is a DeviceError with CodeDeviceLocked.
func IsDeviceLocked(err error) bool { return hasCode(err, CodeDeviceLocked) }

// IsUserRejected reports whether err is a DeviceError with CodeUserRejected.
func IsUserRejected(err error) bool { return hasCode(err, CodeUserRejected) }

// IsDeviceDisconnected reports whether err is a DeviceError with
// CodeDeviceDisconnected.
func IsDeviceDisconnected(err error) bool { return hasCode(err, CodeDeviceDisconnected) }

func hasCode(err error, code DeviceErrorCode) bool {
	var target *DeviceError
	return errors.As(err, &target) && target.Code == code
}

// Device is an external hardware signer. Implementations wrap a transport
// (USB, BLE) to a specific vendor; the emulated device backs tests.
type Device interface {
	// Connect establishes the device session.
	Connect(ctx context.Context) error
	// Close tears the session down. Safe to call on a half-initialized
	// session after a cancelled Connect.
	Close() error
	// GetAddress returns the chain-native address at the given path
	// without exposing any key material.
	GetAddress(ctx context.Context, c chain.Chain, path string) (string, error)
	// SignTransaction signs an opaque transaction payload at the path.
	SignTransaction(ctx context.Context, path string, payload []byte) ([]byte, error)
	// SignMessage signs a human-approved message at the path.
	SignMessage(ctx context.Context, path string, message []byte) ([]byte, error)
}
