package hardware

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/multisig"
)

// DeviceSigner adapts a Device to the multisig signing capability so a
// hardware holder can propose and co-sign exactly like a software signer.
type DeviceSigner struct {
	device  Device
	path    string
	address string
}

// NewDeviceSigner binds a connected device and derivation path to a
// multi-sig signer identity. The address is fetched once up front.
func NewDeviceSigner(ctx context.Context, device Device, c chain.Chain, path string) (*DeviceSigner, error) {
	address, err := device.GetAddress(ctx, c, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read address from device")
	}
	return &DeviceSigner{device: device, path: path, address: address}, nil
}

// Address returns the device-held account address.
func (s *DeviceSigner) Address() string {
	return s.address
}

// SignDigest delegates the digest to the device for on-device confirmation.
func (s *DeviceSigner) SignDigest(ctx context.Context, digest [32]byte) ([]byte, error) {
	return s.device.SignTransaction(ctx, s.path, digest[:])
}

var _ multisig.TxSigner = (*DeviceSigner)(nil)
