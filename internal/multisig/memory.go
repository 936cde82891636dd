package multisig

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for single-device deployments and
// tests. All records are deep-copied across the boundary.
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]*Wallet
	txs     map[string]*PendingTransaction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[string]*Wallet),
		txs:     make(map[string]*PendingTransaction),
	}
}

// SaveWallet stores a new wallet record at version 1. An existing record
// under the same id is never overwritten.
func (s *MemoryStore) SaveWallet(_ context.Context, w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[w.ID]; exists {
		return ErrAlreadyExists
	}

	cp := cloneWallet(w)
	cp.Version = 1
	s.wallets[cp.ID] = cp
	w.Version = cp.Version
	return nil
}

// GetWallet returns a snapshot of the wallet record.
func (s *MemoryStore) GetWallet(_ context.Context, walletID string) (*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneWallet(w), nil
}

// UpdateWallet applies w if the stored version still matches.
func (s *MemoryStore) UpdateWallet(_ context.Context, w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.wallets[w.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != w.Version {
		return ErrVersionConflict
	}

	cp := cloneWallet(w)
	cp.Version = stored.Version + 1
	s.wallets[cp.ID] = cp
	w.Version = cp.Version
	return nil
}

// SaveTransaction stores a new pending transaction at version 1. An
// existing record under the same id is never overwritten.
func (s *MemoryStore) SaveTransaction(_ context.Context, tx *PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; exists {
		return ErrAlreadyExists
	}

	cp := tx.clone()
	cp.Version = 1
	s.txs[cp.ID] = cp
	tx.Version = cp.Version
	return nil
}

// GetTransaction returns a snapshot of the transaction record.
func (s *MemoryStore) GetTransaction(_ context.Context, txID string) (*PendingTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[txID]
	if !ok {
		return nil, ErrNotFound
	}
	return tx.clone(), nil
}

// UpdateTransaction applies tx if the stored version still matches.
func (s *MemoryStore) UpdateTransaction(_ context.Context, tx *PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.txs[tx.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != tx.Version {
		return ErrVersionConflict
	}

	cp := tx.clone()
	cp.Version = stored.Version + 1
	s.txs[cp.ID] = cp
	tx.Version = cp.Version
	return nil
}

// ListTransactions returns snapshots of all transactions for a wallet.
func (s *MemoryStore) ListTransactions(_ context.Context, walletID string) ([]*PendingTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*PendingTransaction
	for _, tx := range s.txs {
		if tx.WalletID == walletID {
			out = append(out, tx.clone())
		}
	}
	return out, nil
}
