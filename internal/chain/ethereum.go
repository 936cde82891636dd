package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// EVMAdapter implements address generation and transfer payload encoding
// for account-style chains (ethereum, celo).
type EVMAdapter struct {
	chainID *big.Int
}

// NewEVMAdapter creates an adapter for the given chain. Returns an error
// for chains without an EVM chain id.
func NewEVMAdapter(c Chain) (*EVMAdapter, error) {
	id, ok := c.EVMChainID()
	if !ok {
		return nil, &ErrUnsupportedChain{Chain: c.String()}
	}
	return &EVMAdapter{chainID: big.NewInt(id)}, nil
}

// ChainID returns the EVM network chain id.
func (a *EVMAdapter) ChainID() *big.Int {
	return new(big.Int).Set(a.chainID)
}

// Address computes the account address as Keccak256(pubkey[1:])[12:],
// accepting compressed or uncompressed secp256k1 public keys.
func (a *EVMAdapter) Address(pubKey []byte) (string, error) {
	var uncompressed64 []byte
	switch {
	case len(pubKey) == 65 && pubKey[0] == 0x04:
		uncompressed64 = pubKey[1:]
	case len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03):
		key, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			return "", errors.Wrap(err, "failed to parse compressed secp256k1 pubkey")
		}
		u := key.SerializeUncompressed()
		uncompressed64 = u[1:]
	default:
		return "", errors.Errorf("unsupported public key format: len=%d", len(pubKey))
	}
	hash := crypto.Keccak256(uncompressed64)
	return fmt.Sprintf("0x%s", hex.EncodeToString(hash[12:])), nil
}

// TransferRequest describes a simple value transfer to be encoded for
// broadcast.
type TransferRequest struct {
	Nonce    uint64
	To       string
	Amount   *big.Int
	GasPrice *big.Int
	GasLimit uint64
	Data     []byte
}

// EncodeTransfer builds the RLP payload for an unsigned legacy transfer.
// The chain id is encoded per EIP-155 so a signature over this payload
// cannot be replayed on another network.
func (a *EVMAdapter) EncodeTransfer(req *TransferRequest) ([]byte, error) {
	fields, err := a.transferFields(req)
	if err != nil {
		return nil, err
	}

	payload := append(fields, a.chainID, uint(0), uint(0))
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rlp encode transfer")
	}
	return encoded, nil
}

// SigningHash returns the Keccak-256 digest of the unsigned transfer
// payload, the value a holder signs.
func (a *EVMAdapter) SigningHash(req *TransferRequest) ([32]byte, error) {
	var digest [32]byte
	encoded, err := a.EncodeTransfer(req)
	if err != nil {
		return digest, err
	}
	copy(digest[:], crypto.Keccak256(encoded))
	return digest, nil
}

// EncodeSignedTransfer assembles the broadcastable signed transaction from
// a 65-byte recoverable signature over SigningHash(req). The recovery id is
// folded into v per EIP-155.
func (a *EVMAdapter) EncodeSignedTransfer(req *TransferRequest, sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, errors.Errorf("invalid signature length: %d", len(sig))
	}
	fields, err := a.transferFields(req)
	if err != nil {
		return nil, err
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	v := new(big.Int).SetUint64(uint64(sig[64]) + 35)
	v.Add(v, new(big.Int).Mul(a.chainID, big.NewInt(2)))

	payload := append(fields, v, r, s)
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rlp encode signed transfer")
	}
	return encoded, nil
}

// transferFields validates the request and returns the common leading RLP
// fields of a legacy transfer.
func (a *EVMAdapter) transferFields(req *TransferRequest) ([]interface{}, error) {
	if req == nil {
		return nil, errors.New("transfer request is nil")
	}
	if req.Amount == nil {
		return nil, errors.New("amount is required")
	}
	gasPrice := req.GasPrice
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = 21000
	}

	return []interface{}{
		req.Nonce,
		gasPrice,
		gasLimit,
		req.To,
		req.Amount,
		req.Data,
	}, nil
}

// Broadcaster submits fully signed transactions to the network. The core
// never talks to an RPC endpoint itself; the surrounding application
// supplies an implementation bound to its own client.
type Broadcaster interface {
	// Broadcast submits the signed blob and returns the transaction hash.
	Broadcast(ctx context.Context, signedTx []byte) (string, error)
}
