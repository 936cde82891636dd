// Package chain defines the set of supported blockchains and their
// chain-level parameters. Everything downstream (derivation, addressing,
// multi-sig payload construction) keys off a Chain value, so an unsupported
// chain is rejected at construction time instead of surfacing as a silent
// runtime failure.
package chain

import (
	"strings"

	"github.com/pkg/errors"
)

// Chain identifies a supported blockchain.
type Chain string

const (
	Solana   Chain = "solana"
	Ethereum Chain = "ethereum"
	Bitcoin  Chain = "bitcoin"
	Celo     Chain = "celo"
)

// Curve identifies the signature curve family a chain uses.
type Curve string

const (
	CurveEd25519   Curve = "ed25519"
	CurveSecp256k1 Curve = "secp256k1"
)

// ErrUnsupportedChain is returned when a chain identifier is not in the
// supported set.
type ErrUnsupportedChain struct {
	Chain string
}

func (e *ErrUnsupportedChain) Error() string {
	return "unsupported chain: " + e.Chain
}

// IsUnsupportedChain reports whether err is an ErrUnsupportedChain.
func IsUnsupportedChain(err error) bool {
	var target *ErrUnsupportedChain
	return errors.As(err, &target)
}

// All returns the supported chains in a stable order.
func All() []Chain {
	return []Chain{Solana, Ethereum, Bitcoin, Celo}
}

// Parse converts a chain identifier string into a Chain, rejecting
// anything outside the supported set.
func Parse(s string) (Chain, error) {
	c := Chain(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Solana, Ethereum, Bitcoin, Celo:
		return c, nil
	default:
		return "", &ErrUnsupportedChain{Chain: s}
	}
}

// Curve returns the signature curve family for the chain.
func (c Chain) Curve() Curve {
	if c == Solana {
		return CurveEd25519
	}
	return CurveSecp256k1
}

// CoinType returns the SLIP-44 coin type used in the BIP44 derivation path.
func (c Chain) CoinType() uint32 {
	switch c {
	case Solana:
		return 501
	case Ethereum:
		return 60
	case Bitcoin:
		return 0
	case Celo:
		return 52752
	default:
		return 0
	}
}

// EVMChainID returns the EVM network chain id for account-style chains and
// false for chains that are not EVM-compatible.
func (c Chain) EVMChainID() (int64, bool) {
	switch c {
	case Ethereum:
		return 1, true
	case Celo:
		return 42220, true
	default:
		return 0, false
	}
}

// IsEVM reports whether the chain uses account-style (Keccak) addresses.
func (c Chain) IsEVM() bool {
	_, ok := c.EVMChainID()
	return ok
}

func (c Chain) String() string {
	return string(c)
}
