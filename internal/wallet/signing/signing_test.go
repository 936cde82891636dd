package signing

import (
	"context"
	"crypto/ed25519"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stusseligmini/walletcore/internal/chain"
	"github.com/stusseligmini/walletcore/internal/multisig"
	"github.com/stusseligmini/walletcore/internal/wallet/derive"
	"github.com/stusseligmini/walletcore/internal/wallet/envelope"
	"github.com/stusseligmini/walletcore/internal/wallet/mnemonic"
	"github.com/stusseligmini/walletcore/internal/wallet/vault"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// newTestService seals the reference mnemonic into a fresh vault under
// "main" with the password "correct-horse".
func newTestService(t *testing.T) *Service {
	t.Helper()

	v, err := vault.New(t.TempDir())
	require.NoError(t, err)

	env, err := envelope.Encrypt([]byte(testMnemonic), []byte("correct-horse"))
	require.NoError(t, err)
	require.NoError(t, v.Save("main", env))

	return NewService(v)
}

func TestSignTransfer(t *testing.T) {
	s := newTestService(t)

	signed, err := s.SignTransfer("main", []byte("correct-horse"), &TransferIntent{
		Chain:  chain.Ethereum,
		To:     "0x00000000000000000000000000000000000000bb",
		Amount: big.NewInt(1_000_000),
		Nonce:  3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	// The blob is a nine-field signed legacy transaction whose signature
	// recovers to the wallet's derived address.
	var fields []rlp.RawValue
	require.NoError(t, rlp.DecodeBytes(signed, &fields))
	assert.Len(t, fields, 9)

	adapter, err := chain.NewEVMAdapter(chain.Ethereum)
	require.NoError(t, err)
	digest, err := adapter.SigningHash(&chain.TransferRequest{
		Nonce:  3,
		To:     "0x00000000000000000000000000000000000000bb",
		Amount: big.NewInt(1_000_000),
	})
	require.NoError(t, err)

	var v, r, sv big.Int
	require.NoError(t, rlp.DecodeBytes(fields[6], &v))
	require.NoError(t, rlp.DecodeBytes(fields[7], &r))
	require.NoError(t, rlp.DecodeBytes(fields[8], &sv))

	// Unfold EIP-155: recid = v - 35 - 2*chainID.
	recid := new(big.Int).Sub(&v, big.NewInt(35+2*1))
	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	sv.FillBytes(sig[32:64])
	sig[64] = byte(recid.Uint64())

	recovered, err := multisig.RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", recovered)
}

func TestSignTransfer_WrongPassword(t *testing.T) {
	s := newTestService(t)

	_, err := s.SignTransfer("main", []byte("wrong-horse"), &TransferIntent{
		Chain:  chain.Ethereum,
		To:     "0xbb",
		Amount: big.NewInt(1),
	})
	require.Error(t, err)
	assert.True(t, envelope.IsAuthenticationError(err))
}

func TestSignTransfer_UnknownWallet(t *testing.T) {
	s := newTestService(t)

	_, err := s.SignTransfer("missing", []byte("correct-horse"), &TransferIntent{
		Chain:  chain.Ethereum,
		To:     "0xbb",
		Amount: big.NewInt(1),
	})
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestSignTransfer_NonEVMChain(t *testing.T) {
	s := newTestService(t)

	_, err := s.SignTransfer("main", []byte("correct-horse"), &TransferIntent{
		Chain:  chain.Bitcoin,
		To:     "1bb",
		Amount: big.NewInt(1),
	})
	require.Error(t, err)
	assert.True(t, chain.IsUnsupportedChain(err))
}

func TestSignMessage_Ed25519(t *testing.T) {
	s := newTestService(t)

	message := []byte("prove account ownership")
	sig, err := s.SignMessage("main", []byte("correct-horse"), chain.Solana, 0, message)
	require.NoError(t, err)
	require.Len(t, sig, ed25519.SignatureSize)

	// Verify against the address the wallet registers for solana.
	engine := mnemonic.NewEngine()
	seed, err := engine.Seed(testMnemonic)
	require.NoError(t, err)
	pair, err := derive.NewKeyPairDeriver().DeriveKeyPair(seed, chain.Solana, 0)
	require.NoError(t, err)
	defer pair.Zero()

	pub, err := base58.Decode(pair.Address)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), message, sig))
}

func TestSignMessage_Secp256k1Recovers(t *testing.T) {
	s := newTestService(t)

	message := []byte("prove account ownership")
	sig, err := s.SignMessage("main", []byte("correct-horse"), chain.Ethereum, 0, message)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	var digest [32]byte
	copy(digest[:], crypto.Keccak256(message))
	recovered, err := multisig.RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", recovered)
}

func TestMultiSigSigner_EndToEnd(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	signer, err := s.MultiSigSigner("main", []byte("correct-horse"), chain.Ethereum, 0)
	require.NoError(t, err)
	defer signer.Zero()
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", signer.Address())

	// The vault-backed signer drives a 1-of-1 coordinator round trip.
	store := multisig.NewMemoryStore()
	coordinator := multisig.NewCoordinator(store, stubBroadcaster{}, time.Hour)

	w := &multisig.Wallet{
		Address:            "0x00000000000000000000000000000000000000aa",
		Blockchain:         "ethereum",
		ChainID:            1,
		RequiredSignatures: 1,
		Signers:            []multisig.Signer{{Address: signer.Address(), Name: "holder", IsActive: true}},
	}
	require.NoError(t, coordinator.CreateWallet(ctx, w))

	tx, err := coordinator.Propose(ctx, w.ID, "0x00000000000000000000000000000000000000bb", big.NewInt(5), "", signer)
	require.NoError(t, err)
	assert.Equal(t, multisig.StatusReady, tx.Status)

	receipt, err := coordinator.Execute(ctx, tx.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TxHash)
}

func TestMultiSigSigner_RejectsEd25519Chain(t *testing.T) {
	s := newTestService(t)

	_, err := s.MultiSigSigner("main", []byte("correct-horse"), chain.Solana, 0)
	require.Error(t, err)
	assert.True(t, chain.IsUnsupportedChain(err))
}

type stubBroadcaster struct{}

func (stubBroadcaster) Submit(_ context.Context, _ *multisig.Wallet, tx *multisig.PendingTransaction, _ []byte) (*multisig.Receipt, error) {
	return &multisig.Receipt{TxHash: "0xhash", Nonce: tx.Nonce, BroadcastAt: time.Now()}, nil
}
