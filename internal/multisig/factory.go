package multisig

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/stusseligmini/walletcore/internal/config"
)

// redisPingTimeout bounds the reachability check when the Redis backend is
// selected.
const redisPingTimeout = 5 * time.Second

// NewStoreFromConfig selects the coordinator store backend: Redis when
// cfg.RedisAddr is set (signers submitting from different devices share
// one store), in-memory otherwise. Redis records inherit the pending-tx
// TTL so abandoned transactions age out of the shared store.
func NewStoreFromConfig(ctx context.Context, cfg config.ServiceConfig) (Store, error) {
	if cfg.RedisAddr == "" {
		return NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping redis")
	}

	log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("using redis multisig store")
	return NewRedisStore(client, cfg.PendingTxTTL), nil
}
