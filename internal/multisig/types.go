// Package multisig coordinates M-of-N transaction authorization: proposal,
// independent partial signing, canonical signature aggregation, and
// execution once the threshold is met. Authoritative state is the persisted
// PendingTransaction record; every mutation goes through a compare-and-swap
// on the record version so concurrent signers merge instead of clobbering
// each other.
package multisig

import (
	"math/big"
	"strings"
	"time"
)

// Status is the lifecycle state of a pending transaction.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusCollecting Status = "collecting"
	StatusReady      Status = "ready"
	StatusExecuted   Status = "executed"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusExecuted || s == StatusExpired || s == StatusCancelled
}

// Signer is a member of a multi-sig wallet.
type Signer struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// Wallet is the shared M-of-N wallet record. Nonce increases monotonically,
// one consumed per executed transaction.
type Wallet struct {
	ID                 string   `json:"id"`
	Address            string   `json:"address"`
	Blockchain         string   `json:"blockchain"`
	ChainID            int64    `json:"chainId"`
	RequiredSignatures int      `json:"requiredSignatures"`
	Signers            []Signer `json:"signers"`
	Nonce              uint64   `json:"nonce"`

	// Version backs optimistic concurrency in the store.
	Version int64 `json:"version"`
}

// SignerByAddress returns the wallet member with the given address,
// compared case-insensitively.
func (w *Wallet) SignerByAddress(address string) (Signer, bool) {
	for _, s := range w.Signers {
		if strings.EqualFold(s.Address, address) {
			return s, true
		}
	}
	return Signer{}, false
}

// SignatureEntry is one signer's partial signature over the canonical
// transaction digest. At most one entry exists per distinct signer address.
type SignatureEntry struct {
	SignerAddress string `json:"signerAddress"`
	Signature     []byte `json:"signature"`
}

// Receipt records a successful broadcast.
type Receipt struct {
	TxHash      string    `json:"txHash"`
	Nonce       uint64    `json:"nonce"`
	BroadcastAt time.Time `json:"broadcastAt"`
}

// PendingTransaction is the coordinator-owned record of an in-flight
// multi-sig transaction. Once executed, the underlying ledger becomes
// authoritative and the record is immutable.
type PendingTransaction struct {
	ID           string           `json:"id"`
	WalletID     string           `json:"walletId"`
	ToAddress    string           `json:"toAddress"`
	Amount       *big.Int         `json:"amount"`
	Memo         string           `json:"memo,omitempty"`
	Nonce        uint64           `json:"nonce"`
	RequiredSigs int              `json:"requiredSigs"`
	Signatures   []SignatureEntry `json:"signatures"`
	Status       Status           `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	ExpiresAt    time.Time        `json:"expiresAt"`
	Receipt      *Receipt         `json:"receipt,omitempty"`

	// Version backs optimistic concurrency in the store.
	Version int64 `json:"version"`
}

// SignatureFor returns the index of the entry for the given signer address
// (case-insensitive), or -1 when the signer has not signed yet.
func (t *PendingTransaction) SignatureFor(address string) int {
	for i, entry := range t.Signatures {
		if strings.EqualFold(entry.SignerAddress, address) {
			return i
		}
	}
	return -1
}

// DistinctSignatures counts entries; the coordinator maintains the
// one-entry-per-signer invariant on insert.
func (t *PendingTransaction) DistinctSignatures() int {
	return len(t.Signatures)
}

// clone returns a deep copy so store snapshots cannot alias caller state.
func (t *PendingTransaction) clone() *PendingTransaction {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Amount != nil {
		cp.Amount = new(big.Int).Set(t.Amount)
	}
	cp.Signatures = make([]SignatureEntry, len(t.Signatures))
	for i, entry := range t.Signatures {
		sig := make([]byte, len(entry.Signature))
		copy(sig, entry.Signature)
		cp.Signatures[i] = SignatureEntry{SignerAddress: entry.SignerAddress, Signature: sig}
	}
	if t.Receipt != nil {
		rc := *t.Receipt
		cp.Receipt = &rc
	}
	return &cp
}

// cloneWallet mirrors clone for wallet records.
func cloneWallet(w *Wallet) *Wallet {
	if w == nil {
		return nil
	}
	cp := *w
	cp.Signers = append([]Signer(nil), w.Signers...)
	return &cp
}
