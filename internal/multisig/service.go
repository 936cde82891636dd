package multisig

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// casRetries bounds optimistic-concurrency retry loops. Conflicts only
// occur when another signer wrote the same record concurrently, so a small
// bound is plenty.
const casRetries = 5

// Broadcaster submits a fully aggregated multi-sig transaction for on-chain
// execution. The surrounding application supplies an implementation bound
// to its RPC client; the coordinator itself defines no network protocol.
type Broadcaster interface {
	// Submit broadcasts the transaction with its aggregated signature
	// blob. Implementations return *ErrNonceConsumed when the wallet
	// nonce was already spent, so the coordinator can recover retried
	// broadcasts as idempotent successes.
	Submit(ctx context.Context, w *Wallet, tx *PendingTransaction, aggregated []byte) (*Receipt, error)
}

// Coordinator drives the pending-transaction state machine. It holds no
// authoritative state of its own: every decision is made against the
// persisted record, so Sign and Execute are safe to retry under
// at-least-once delivery.
type Coordinator struct {
	store       Store
	broadcaster Broadcaster
	expiry      time.Duration
	now         func() time.Time
}

// NewCoordinator creates a coordinator. Transactions auto-expire after the
// expiry window.
func NewCoordinator(store Store, broadcaster Broadcaster, expiry time.Duration) *Coordinator {
	ensureMetrics()
	return &Coordinator{
		store:       store,
		broadcaster: broadcaster,
		expiry:      expiry,
		now:         time.Now,
	}
}

// CreateWallet validates and persists a new multi-sig wallet record.
func (c *Coordinator) CreateWallet(ctx context.Context, w *Wallet) error {
	if w == nil {
		return errors.New("wallet is required")
	}
	if w.ID == "" {
		w.ID = "wallet-" + uuid.New().String()
	}
	if len(w.Signers) == 0 {
		return errors.New("wallet requires at least one signer")
	}
	if w.RequiredSignatures < 1 || w.RequiredSignatures > len(w.Signers) {
		return errors.Errorf("required signatures must be between 1 and %d, got %d",
			len(w.Signers), w.RequiredSignatures)
	}
	seen := make(map[string]struct{}, len(w.Signers))
	for _, s := range w.Signers {
		if s.Address == "" {
			return errors.New("signer address is required")
		}
		key := strings.ToLower(s.Address)
		if _, dup := seen[key]; dup {
			return errors.Errorf("duplicate signer address: %s", s.Address)
		}
		seen[key] = struct{}{}
	}

	if err := c.store.SaveWallet(ctx, w); err != nil {
		return errors.Wrap(err, "failed to save wallet")
	}

	log.Info().
		Str("wallet_id", w.ID).
		Str("blockchain", w.Blockchain).
		Int("threshold", w.RequiredSignatures).
		Int("signers", len(w.Signers)).
		Msg("multisig wallet created")
	return nil
}

// Propose creates a pending transaction and records the proposer's own
// signature as the first entry. The initial state is collecting when the
// threshold is above one, ready otherwise.
func (c *Coordinator) Propose(ctx context.Context, walletID, toAddress string, amount *big.Int, memo string, proposer TxSigner) (*PendingTransaction, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if toAddress == "" {
		return nil, errors.New("destination address is required")
	}

	w, err := c.store.GetWallet(ctx, walletID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load wallet")
	}

	member, ok := w.SignerByAddress(proposer.Address())
	if !ok || !member.IsActive {
		return nil, ErrNotSigner
	}

	now := c.now()
	tx := &PendingTransaction{
		ID:           "tx-" + uuid.New().String(),
		WalletID:     w.ID,
		ToAddress:    toAddress,
		Amount:       new(big.Int).Set(amount),
		Memo:         memo,
		Nonce:        w.Nonce,
		RequiredSigs: w.RequiredSignatures,
		Status:       StatusProposed,
		CreatedAt:    now,
		ExpiresAt:    now.Add(c.expiry),
	}

	digest, err := TransactionDigest(w, tx)
	if err != nil {
		return nil, err
	}

	sig, err := proposer.SignDigest(ctx, digest)
	if err != nil {
		return nil, errors.Wrap(err, "proposer failed to sign")
	}
	if err := verifySignature(digest, sig, member.Address); err != nil {
		return nil, err
	}

	tx.Signatures = []SignatureEntry{{SignerAddress: member.Address, Signature: sig}}
	if tx.DistinctSignatures() >= tx.RequiredSigs {
		tx.Status = StatusReady
	} else {
		tx.Status = StatusCollecting
	}

	if err := c.store.SaveTransaction(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "failed to save transaction")
	}

	proposalsTotal.Inc()
	signaturesTotal.Inc()
	log.Info().
		Str("tx_id", tx.ID).
		Str("wallet_id", w.ID).
		Str("status", string(tx.Status)).
		Msg("transaction proposed")
	return tx, nil
}

// Sign records a partial signature from an independent signer. Re-signing
// by the same signer replaces its previous entry; concurrent signatures
// from different signers merge by set union. The transaction moves to
// ready the moment distinct valid signatures reach the threshold.
func (c *Coordinator) Sign(ctx context.Context, txID string, signer TxSigner) (*PendingTransaction, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		tx, err := c.store.GetTransaction(ctx, txID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load transaction")
		}

		// Retried delivery of a signature that already landed is a
		// success, even if the transaction has since executed.
		if tx.Status.Terminal() {
			if tx.SignatureFor(signer.Address()) >= 0 {
				return tx, nil
			}
			return nil, ErrTerminalState
		}

		if c.now().After(tx.ExpiresAt) {
			if _, err := c.markExpired(ctx, tx); err != nil {
				return nil, err
			}
			return nil, ErrTransactionExpired
		}

		w, err := c.store.GetWallet(ctx, tx.WalletID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load wallet")
		}
		member, ok := w.SignerByAddress(signer.Address())
		if !ok || !member.IsActive {
			return nil, ErrNotSigner
		}

		// Each signer rebuilds the canonical payload from wallet state
		// and transaction fields; nothing peer-supplied is signed.
		digest, err := TransactionDigest(w, tx)
		if err != nil {
			return nil, err
		}
		sig, err := signer.SignDigest(ctx, digest)
		if err != nil {
			return nil, errors.Wrap(err, "failed to sign digest")
		}
		if err := verifySignature(digest, sig, member.Address); err != nil {
			return nil, err
		}

		entry := SignatureEntry{SignerAddress: member.Address, Signature: sig}
		if i := tx.SignatureFor(member.Address); i >= 0 {
			tx.Signatures[i] = entry
		} else {
			tx.Signatures = append(tx.Signatures, entry)
		}

		// Valid signatures past the threshold are still recorded; the
		// status simply stays ready.
		if tx.Status != StatusReady && tx.DistinctSignatures() >= tx.RequiredSigs {
			tx.Status = StatusReady
		} else if tx.Status == StatusProposed {
			tx.Status = StatusCollecting
		}

		err = c.store.UpdateTransaction(ctx, tx)
		if err == nil {
			signaturesTotal.Inc()
			log.Info().
				Str("tx_id", tx.ID).
				Str("signer", member.Address).
				Int("have", tx.DistinctSignatures()).
				Int("need", tx.RequiredSigs).
				Str("status", string(tx.Status)).
				Msg("signature recorded")
			return tx, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, errors.Wrap(err, "failed to update transaction")
		}
	}
	return nil, errors.Errorf("failed to record signature after %d attempts", casRetries)
}

// Execute aggregates the collected signatures canonically and submits the
// transaction. Only callable when ready; a second call after execution is
// a no-op returning the prior receipt. A broadcast failure leaves the
// transaction ready and retryable.
func (c *Coordinator) Execute(ctx context.Context, txID string) (*Receipt, error) {
	tx, err := c.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load transaction")
	}

	if tx.Status == StatusExecuted {
		return tx.Receipt, nil
	}
	if tx.Status.Terminal() {
		return nil, ErrTerminalState
	}
	// The expiry window binds Execute the same way it binds Sign: a ready
	// transaction that outlived the window expires instead of broadcasting.
	if c.now().After(tx.ExpiresAt) {
		if _, err := c.markExpired(ctx, tx); err != nil {
			return nil, err
		}
		return nil, ErrTransactionExpired
	}
	if tx.Status != StatusReady {
		executionsTotal.WithLabelValues("threshold_not_met").Inc()
		return nil, &ErrThresholdNotMet{Have: tx.DistinctSignatures(), Need: tx.RequiredSigs}
	}

	w, err := c.store.GetWallet(ctx, tx.WalletID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load wallet")
	}

	aggregated := AggregateSignatures(tx.Signatures)

	receipt, err := c.broadcaster.Submit(ctx, w, tx, aggregated)
	if err != nil {
		var consumed *ErrNonceConsumed
		if errors.As(err, &consumed) && consumed.Nonce == tx.Nonce {
			// The ledger is the final arbiter on nonce uniqueness: a
			// second broadcast of the same transaction is benign.
			receipt = &Receipt{
				TxHash:      consumed.TxHash,
				Nonce:       tx.Nonce,
				BroadcastAt: c.now(),
			}
			executionsTotal.WithLabelValues("already_consumed").Inc()
		} else {
			executionsTotal.WithLabelValues("broadcast_failed").Inc()
			return nil, errors.Wrap(err, "broadcast failed")
		}
	} else {
		executionsTotal.WithLabelValues("executed").Inc()
	}

	if err := c.finalize(ctx, tx.ID, receipt); err != nil {
		return nil, err
	}
	c.consumeNonce(ctx, w.ID, tx.Nonce)

	log.Info().
		Str("tx_id", tx.ID).
		Str("wallet_id", w.ID).
		Str("tx_hash", receipt.TxHash).
		Msg("transaction executed")
	return receipt, nil
}

// Cancel transitions a non-executed transaction to cancelled. Only wallet
// members may cancel.
func (c *Coordinator) Cancel(ctx context.Context, txID, signerAddress string) (*PendingTransaction, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		tx, err := c.store.GetTransaction(ctx, txID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load transaction")
		}
		if tx.Status == StatusCancelled {
			return tx, nil
		}
		if tx.Status.Terminal() {
			return nil, ErrTerminalState
		}

		w, err := c.store.GetWallet(ctx, tx.WalletID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load wallet")
		}
		if member, ok := w.SignerByAddress(signerAddress); !ok || !member.IsActive {
			return nil, ErrNotSigner
		}

		tx.Status = StatusCancelled
		err = c.store.UpdateTransaction(ctx, tx)
		if err == nil {
			log.Info().Str("tx_id", tx.ID).Str("by", signerAddress).Msg("transaction cancelled")
			return tx, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, errors.Wrap(err, "failed to update transaction")
		}
	}
	return nil, errors.Errorf("failed to cancel after %d attempts", casRetries)
}

// ExpireStale transitions every past-expiry, non-terminal transaction of a
// wallet to expired and returns how many were swept.
func (c *Coordinator) ExpireStale(ctx context.Context, walletID string) (int, error) {
	txs, err := c.store.ListTransactions(ctx, walletID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list transactions")
	}

	expired := 0
	for _, tx := range txs {
		if tx.Status.Terminal() || !c.now().After(tx.ExpiresAt) {
			continue
		}
		if _, err := c.markExpired(ctx, tx); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// GetTransaction returns a snapshot for display by UI/API layers.
func (c *Coordinator) GetTransaction(ctx context.Context, txID string) (*PendingTransaction, error) {
	return c.store.GetTransaction(ctx, txID)
}

// AggregateSignatures produces the canonical aggregate: entries sorted by
// signer address, case-insensitive ascending, then concatenated. The
// verification contract checks signatures in strictly increasing signer
// order, so any other ordering would broadcast a valid-looking but rejected
// transaction.
func AggregateSignatures(entries []SignatureEntry) []byte {
	sorted := append([]SignatureEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].SignerAddress) < strings.ToLower(sorted[j].SignerAddress)
	})

	size := 0
	for _, e := range sorted {
		size += len(e.Signature)
	}
	out := make([]byte, 0, size)
	for _, e := range sorted {
		out = append(out, e.Signature...)
	}
	return out
}

// finalize marks the transaction executed with its receipt, tolerating a
// concurrent executor having already done so.
func (c *Coordinator) finalize(ctx context.Context, txID string, receipt *Receipt) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		tx, err := c.store.GetTransaction(ctx, txID)
		if err != nil {
			return errors.Wrap(err, "failed to reload transaction")
		}
		if tx.Status == StatusExecuted {
			return nil
		}

		tx.Status = StatusExecuted
		tx.Receipt = receipt
		err = c.store.UpdateTransaction(ctx, tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return errors.Wrap(err, "failed to finalize transaction")
		}
	}
	return errors.Errorf("failed to finalize after %d attempts", casRetries)
}

// consumeNonce advances the wallet nonce past the executed one. A conflict
// from a concurrent executor that already advanced it is fine.
func (c *Coordinator) consumeNonce(ctx context.Context, walletID string, executed uint64) {
	for attempt := 0; attempt < casRetries; attempt++ {
		w, err := c.store.GetWallet(ctx, walletID)
		if err != nil {
			log.Warn().Err(err).Str("wallet_id", walletID).Msg("failed to reload wallet for nonce update")
			return
		}
		if w.Nonce > executed {
			return
		}
		w.Nonce = executed + 1
		err = c.store.UpdateWallet(ctx, w)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrVersionConflict) {
			log.Warn().Err(err).Str("wallet_id", walletID).Msg("failed to advance wallet nonce")
			return
		}
	}
}

// markExpired transitions a transaction to expired under CAS.
func (c *Coordinator) markExpired(ctx context.Context, tx *PendingTransaction) (*PendingTransaction, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		tx.Status = StatusExpired
		err := c.store.UpdateTransaction(ctx, tx)
		if err == nil {
			log.Info().Str("tx_id", tx.ID).Msg("transaction expired")
			return tx, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, errors.Wrap(err, "failed to expire transaction")
		}
		tx, err = c.store.GetTransaction(ctx, tx.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to reload transaction")
		}
		if tx.Status.Terminal() {
			return tx, nil
		}
	}
	return nil, errors.Errorf("failed to expire after %d attempts", casRetries)
}

// verifySignature checks that sig over digest recovers to the expected
// address.
func verifySignature(digest [32]byte, sig []byte, address string) error {
	recovered, err := RecoverSigner(digest, sig)
	if err != nil {
		return errors.Wrap(err, "failed to recover signer")
	}
	if !strings.EqualFold(recovered, address) {
		return ErrInvalidSignature
	}
	return nil
}
