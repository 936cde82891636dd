package multisig

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a wallet or transaction does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned by Save calls when a record with the
	// same id is already stored. Existing records are only changed
	// through the conditional Update calls.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrVersionConflict is returned by conditional updates when the
	// record changed since it was read. Callers re-read and retry.
	ErrVersionConflict = errors.New("record version conflict")
)

// Store persists multi-sig wallets and pending transactions. Save calls
// are create-only (ErrAlreadyExists on an id collision). Updates are
// optimistic: they succeed only when the stored record still carries the
// version the caller read, so concurrent signer submissions from different
// devices merge instead of silently overwriting each other.
type Store interface {
	// SaveWallet creates the wallet record at version 1.
	SaveWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, walletID string) (*Wallet, error)
	// UpdateWallet applies w when the stored version matches w.Version,
	// then increments it. Returns ErrVersionConflict otherwise.
	UpdateWallet(ctx context.Context, w *Wallet) error

	// SaveTransaction creates the transaction record at version 1.
	SaveTransaction(ctx context.Context, tx *PendingTransaction) error
	GetTransaction(ctx context.Context, txID string) (*PendingTransaction, error)
	// UpdateTransaction applies tx under the same version discipline as
	// UpdateWallet.
	UpdateTransaction(ctx context.Context, tx *PendingTransaction) error
	// ListTransactions returns all pending transactions for a wallet.
	ListTransactions(ctx context.Context, walletID string) ([]*PendingTransaction, error)
}
