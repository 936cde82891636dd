// Package addrbook derives the full set of chain-native public addresses
// from a mnemonic for backend registration. Only public data leaves this
// package: private key material is wiped per chain as soon as its address
// has been computed.
package addrbook

import (
	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/wallet/derive"
	"github.com/stusseligmini/walletcore/internal/wallet/mnemonic"
)

// AddressBook derives registration addresses across all supported chains.
type AddressBook struct {
	engine  *mnemonic.Engine
	deriver *derive.KeyPairDeriver
}

// New creates an address book over the given mnemonic engine.
func New(engine *mnemonic.Engine) *AddressBook {
	return &AddressBook{
		engine:  engine,
		deriver: derive.NewKeyPairDeriver(),
	}
}

// DeriveAllAddresses runs derivation once per supported chain at account
// index 0 and returns only the public addresses. This map is the only data
// safe to transmit at wallet-creation time.
func (b *AddressBook) DeriveAllAddresses(phrase string) (map[chain.Chain]string, error) {
	seed, err := b.engine.Seed(phrase)
	if err != nil {
		return nil, err
	}
	defer mnemonic.Zero(seed)

	addresses := make(map[chain.Chain]string, len(chain.All()))
	for _, c := range chain.All() {
		pair, err := b.deriver.DeriveKeyPair(seed, c, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive %s address", c)
		}
		addresses[c] = pair.Address
		pair.Zero()
	}
	return addresses, nil
}
