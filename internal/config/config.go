// Package config builds service configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// ServiceConfig carries the tunables for the wallet core. Cryptographic
// constants (KDF iterations, key sizes) are deliberately not configurable;
// they are versioned in the envelope format instead.
type ServiceConfig struct {
	// VaultDir is the local directory envelopes are stored under.
	VaultDir string `envconfig:"WALLET_VAULT_DIR" default:".wallet/vault"`

	// PendingTxTTL is the window after which unexecuted multi-sig
	// transactions auto-expire.
	PendingTxTTL time.Duration `envconfig:"WALLET_PENDING_TX_TTL" default:"72h"`

	// RedisAddr enables the Redis-backed multi-sig store when set;
	// empty selects the in-memory store.
	RedisAddr     string `envconfig:"WALLET_REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"WALLET_REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"WALLET_REDIS_DB" default:"0"`

	// HardwareTimeout bounds hardware signer calls that wait on physical
	// confirmation.
	HardwareTimeout time.Duration `envconfig:"WALLET_HARDWARE_TIMEOUT" default:"45s"`
}

// DefaultServiceConfigFromEnv returns the configuration resolved from the
// environment, falling back to defaults on parse failure.
func DefaultServiceConfigFromEnv() ServiceConfig {
	var cfg ServiceConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Warn().Err(err).Msg("failed to process environment, using defaults")
		cfg = ServiceConfig{
			VaultDir:        ".wallet/vault",
			PendingTxTTL:    72 * time.Hour,
			HardwareTimeout: 45 * time.Second,
		}
	}
	return cfg
}
