package multisig

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWalletAndTx() (*Wallet, *PendingTransaction) {
	w := &Wallet{
		ID:                 "wallet-1",
		Address:            "0x00000000000000000000000000000000000000aa",
		Blockchain:         "ethereum",
		ChainID:            1,
		RequiredSignatures: 2,
	}
	tx := &PendingTransaction{
		ID:        "tx-1",
		WalletID:  w.ID,
		ToAddress: "0x00000000000000000000000000000000000000bb",
		Amount:    big.NewInt(1_000_000),
		Memo:      "payroll batch 3",
		Nonce:     7,
		CreatedAt: time.Unix(1700000000, 0),
	}
	return w, tx
}

func TestTransactionDigest_Deterministic(t *testing.T) {
	w, tx := testWalletAndTx()

	d1, err := TransactionDigest(w, tx)
	require.NoError(t, err)
	d2, err := TransactionDigest(w, tx)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

// Every signed field must change the digest, so a signature can never be
// replayed for a different transfer.
func TestTransactionDigest_BindsFields(t *testing.T) {
	w, base := testWalletAndTx()
	baseline, err := TransactionDigest(w, base)
	require.NoError(t, err)

	mutations := map[string]func(w *Wallet, tx *PendingTransaction){
		"destination": func(_ *Wallet, tx *PendingTransaction) {
			tx.ToAddress = "0x00000000000000000000000000000000000000cc"
		},
		"amount": func(_ *Wallet, tx *PendingTransaction) { tx.Amount = big.NewInt(2) },
		"memo":   func(_ *Wallet, tx *PendingTransaction) { tx.Memo = "other" },
		"nonce":  func(_ *Wallet, tx *PendingTransaction) { tx.Nonce = 8 },
		"chain": func(w *Wallet, _ *PendingTransaction) {
			w.ChainID = 42220
		},
		"wallet address": func(w *Wallet, _ *PendingTransaction) {
			w.Address = "0x00000000000000000000000000000000000000dd"
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			wc, txc := testWalletAndTx()
			mutate(wc, txc)
			d, err := TransactionDigest(wc, txc)
			require.NoError(t, err)
			assert.NotEqual(t, baseline, d)
		})
	}
}

func TestKeySigner_SignAndRecover(t *testing.T) {
	signer := newTestSigner(t)
	w, tx := testWalletAndTx()

	digest, err := TransactionDigest(w, tx)
	require.NoError(t, err)

	sig, err := signer.SignDigest(context.Background(), digest)
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	recovered, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)

	// A different key must not recover to the same address.
	other := newTestSigner(t)
	otherSig, err := other.SignDigest(context.Background(), digest)
	require.NoError(t, err)
	mismatched, err := RecoverSigner(digest, otherSig)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), mismatched)
}

func TestKeySigner_Zero(t *testing.T) {
	signer := newTestSigner(t)
	signer.Zero()

	_, err := signer.SignDigest(context.Background(), [32]byte{1})
	assert.Error(t, err)
}

func TestRecoverSigner_RejectsMalformed(t *testing.T) {
	_, err := RecoverSigner([32]byte{1}, []byte{0x01, 0x02})
	assert.Error(t, err)
}
