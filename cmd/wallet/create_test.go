package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stusseligmini/walletcore/internal/chain"
)

// The address listing must come out in the supported-chain order every
// run, not in map iteration order.
func TestFormatAddresses_StableOrder(t *testing.T) {
	addresses := map[chain.Chain]string{
		chain.Celo:     "0xcelo",
		chain.Bitcoin:  "1btc",
		chain.Ethereum: "0xeth",
		chain.Solana:   "sol58",
	}

	expected := "  solana     sol58\n" +
		"  ethereum   0xeth\n" +
		"  bitcoin    1btc\n" +
		"  celo       0xcelo\n"

	for i := 0; i < 4; i++ {
		assert.Equal(t, expected, formatAddresses(addresses))
	}
}

func TestFormatAddresses_SkipsMissingChains(t *testing.T) {
	out := formatAddresses(map[chain.Chain]string{chain.Ethereum: "0xeth"})
	assert.Equal(t, "  ethereum   0xeth\n", out)
}
