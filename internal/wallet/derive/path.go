// Package derive turns a BIP39 seed into chain-native keypairs along fixed
// BIP32/44-style derivation paths. Derivation is pure: the same
// (seed, chain, accountIndex) tuple always yields the same keypair, which is
// what lets independent signers reconstruct the same public identity on
// different devices.
package derive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/stusseligmini/walletcore/internal/chain"
)

// HardenedKeyStart marks the first hardened child index per BIP32.
const HardenedKeyStart uint32 = 0x80000000

// Path holds the parsed component indices of a derivation path. Hardened
// components carry the high bit.
type Path []uint32

// PathFor returns the fixed derivation path for a chain at the given
// account index. Ed25519 chains use fully hardened SLIP-10 paths; secp256k1
// chains use the conventional BIP44 layout with the account index in the
// final, non-hardened address position.
func PathFor(c chain.Chain, accountIndex uint32) string {
	switch c.Curve() {
	case chain.CurveEd25519:
		return fmt.Sprintf("m/44'/%d'/%d'/0'", c.CoinType(), accountIndex)
	default:
		return fmt.Sprintf("m/44'/%d'/0'/0/%d", c.CoinType(), accountIndex)
	}
}

// ParsePath parses a path string such as "m/44'/60'/0'/0/0" into component
// indices. Both ' and h mark hardened components.
func ParsePath(path string) (Path, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "m" || trimmed == "/" {
		return Path{}, nil
	}

	parts := strings.Split(trimmed, "/")
	if parts[0] == "m" {
		parts = parts[1:]
	}

	indices := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}

		hardened := false
		if strings.HasSuffix(part, "'") {
			hardened = true
			part = strings.TrimSuffix(part, "'")
		} else if strings.HasSuffix(part, "h") {
			hardened = true
			part = strings.TrimSuffix(part, "h")
		}

		val, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, errors.Errorf("invalid path component: %q", part)
		}
		if uint32(val) >= HardenedKeyStart {
			return nil, errors.Errorf("path component out of range: %q", part)
		}

		index := uint32(val)
		if hardened {
			index |= HardenedKeyStart
		}
		indices = append(indices, index)
	}
	return indices, nil
}

// String renders the path back into its canonical "m/..." form.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, index := range p {
		sb.WriteString("/")
		if index >= HardenedKeyStart {
			sb.WriteString(strconv.FormatUint(uint64(index-HardenedKeyStart), 10))
			sb.WriteString("'")
		} else {
			sb.WriteString(strconv.FormatUint(uint64(index), 10))
		}
	}
	return sb.String()
}
