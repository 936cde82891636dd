package multisig

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisWalletPrefix = "multisig:wallet:"
	redisTxPrefix     = "multisig:tx:"
	redisTxIndex      = "multisig:txindex:"
)

// RedisStore is a Store backed by Redis, for deployments where signers
// submit from different devices. Conditional updates run under WATCH so a
// concurrent write turns into ErrVersionConflict instead of a lost update.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. Records expire after ttl;
// zero means no expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// SaveWallet stores a new wallet record at version 1. An existing record
// under the same id is never overwritten.
func (s *RedisStore) SaveWallet(ctx context.Context, w *Wallet) error {
	w.Version = 1
	data, err := json.Marshal(w)
	if err != nil {
		return errors.Wrap(err, "failed to marshal wallet")
	}
	created, err := s.client.SetNX(ctx, redisWalletPrefix+w.ID, data, s.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to save wallet")
	}
	if !created {
		return ErrAlreadyExists
	}
	return nil
}

// GetWallet loads a wallet record.
func (s *RedisStore) GetWallet(ctx context.Context, walletID string) (*Wallet, error) {
	data, err := s.client.Get(ctx, redisWalletPrefix+walletID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get wallet")
	}

	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal wallet")
	}
	return &w, nil
}

// UpdateWallet applies w when the stored version still matches w.Version.
func (s *RedisStore) UpdateWallet(ctx context.Context, w *Wallet) error {
	key := redisWalletPrefix + w.ID
	return s.watchUpdate(ctx, key, func(stored []byte) ([]byte, error) {
		return casBumpWallet(stored, w)
	})
}

// SaveTransaction stores a new transaction record at version 1 and indexes
// it under its wallet. An existing record under the same id is never
// overwritten.
func (s *RedisStore) SaveTransaction(ctx context.Context, tx *PendingTransaction) error {
	tx.Version = 1
	data, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrap(err, "failed to marshal transaction")
	}

	pipe := s.client.TxPipeline()
	created := pipe.SetNX(ctx, redisTxPrefix+tx.ID, data, s.ttl)
	pipe.SAdd(ctx, redisTxIndex+tx.WalletID, tx.ID)
	if s.ttl > 0 {
		pipe.Expire(ctx, redisTxIndex+tx.WalletID, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to save transaction")
	}
	if !created.Val() {
		return ErrAlreadyExists
	}
	return nil
}

// GetTransaction loads a transaction record.
func (s *RedisStore) GetTransaction(ctx context.Context, txID string) (*PendingTransaction, error) {
	data, err := s.client.Get(ctx, redisTxPrefix+txID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var tx PendingTransaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal transaction")
	}
	return &tx, nil
}

// UpdateTransaction applies tx when the stored version still matches.
func (s *RedisStore) UpdateTransaction(ctx context.Context, tx *PendingTransaction) error {
	key := redisTxPrefix + tx.ID
	return s.watchUpdate(ctx, key, func(stored []byte) ([]byte, error) {
		return casBumpTransaction(stored, tx)
	})
}

// casBumpWallet checks the stored wallet record against the version the
// caller read and, on a match, marshals the update with the version
// advanced. This is the version discipline every conditional write runs
// under WATCH.
func casBumpWallet(stored []byte, w *Wallet) ([]byte, error) {
	var current Wallet
	if err := json.Unmarshal(stored, &current); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal wallet")
	}
	if current.Version != w.Version {
		return nil, ErrVersionConflict
	}
	w.Version = current.Version + 1
	return json.Marshal(w)
}

// casBumpTransaction mirrors casBumpWallet for transaction records.
func casBumpTransaction(stored []byte, tx *PendingTransaction) ([]byte, error) {
	var current PendingTransaction
	if err := json.Unmarshal(stored, &current); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal transaction")
	}
	if current.Version != tx.Version {
		return nil, ErrVersionConflict
	}
	tx.Version = current.Version + 1
	return json.Marshal(tx)
}

// ListTransactions loads all transactions indexed under a wallet.
func (s *RedisStore) ListTransactions(ctx context.Context, walletID string) ([]*PendingTransaction, error) {
	ids, err := s.client.SMembers(ctx, redisTxIndex+walletID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transaction ids")
	}

	out := make([]*PendingTransaction, 0, len(ids))
	for _, id := range ids {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// watchUpdate runs a read-modify-write under WATCH. A concurrent write to
// the key aborts the transaction and surfaces as ErrVersionConflict so
// callers fall into their normal retry path.
func (s *RedisStore) watchUpdate(ctx context.Context, key string, modify func(stored []byte) ([]byte, error)) error {
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		stored, err := rtx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return errors.Wrap(err, "failed to read record")
		}

		next, err := modify(stored)
		if err != nil {
			return err
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}
