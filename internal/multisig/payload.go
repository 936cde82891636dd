package multisig

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// The message every party signs is a structured, domain-separated record
// bound to the wallet address and chain id. Each signer rebuilds it purely
// from wallet state and transaction fields, never trusting a peer-supplied
// blob, so the digest byte-matches across devices and a signature cannot be
// replayed against another wallet or chain.

const zeroAddress = "0x0000000000000000000000000000000000000000"

// safeTxTypes is the EIP-712 type set for the authorization record.
var safeTxTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"SafeTx": []apitypes.Type{
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "operation", Type: "uint8"},
		{Name: "safeTxGas", Type: "uint256"},
		{Name: "baseGas", Type: "uint256"},
		{Name: "gasPrice", Type: "uint256"},
		{Name: "gasToken", Type: "address"},
		{Name: "refundReceiver", Type: "address"},
		{Name: "nonce", Type: "uint256"},
	},
}

// TransactionDigest computes the canonical 32-byte signing digest for a
// pending transaction against its wallet. Deterministic: identical wallet
// state and transaction fields always hash to the same digest.
func TransactionDigest(w *Wallet, tx *PendingTransaction) ([32]byte, error) {
	var digest [32]byte
	if w == nil || tx == nil {
		return digest, errors.New("wallet and transaction are required")
	}
	if tx.Amount == nil {
		return digest, errors.New("transaction amount is required")
	}
	if w.ChainID == 0 {
		return digest, errors.Errorf("wallet %s has no chain id", w.ID)
	}

	typedData := apitypes.TypedData{
		Types:       safeTxTypes,
		PrimaryType: "SafeTx",
		Domain: apitypes.TypedDataDomain{
			ChainId:           math.NewHexOrDecimal256(w.ChainID),
			VerifyingContract: w.Address,
		},
		Message: apitypes.TypedDataMessage{
			"to":             tx.ToAddress,
			"value":          (*math.HexOrDecimal256)(tx.Amount),
			"data":           hexutil.Encode([]byte(tx.Memo)),
			"operation":      math.NewHexOrDecimal256(0),
			"safeTxGas":      math.NewHexOrDecimal256(0),
			"baseGas":        math.NewHexOrDecimal256(0),
			"gasPrice":       math.NewHexOrDecimal256(0),
			"gasToken":       zeroAddress,
			"refundReceiver": zeroAddress,
			"nonce":          (*math.HexOrDecimal256)(new(big.Int).SetUint64(tx.Nonce)),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return digest, errors.Wrap(err, "failed to hash typed data")
	}
	copy(digest[:], hash)
	return digest, nil
}
