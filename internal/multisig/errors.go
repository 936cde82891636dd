package multisig

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrThresholdNotMet is returned by Execute when too few distinct valid
// signatures have been collected. It carries the current and required
// counts so callers can show users what is outstanding.
type ErrThresholdNotMet struct {
	Have int
	Need int
}

func (e *ErrThresholdNotMet) Error() string {
	return fmt.Sprintf("threshold not met: %d of %d required signatures", e.Have, e.Need)
}

// IsThresholdNotMet reports whether err is an ErrThresholdNotMet.
func IsThresholdNotMet(err error) bool {
	var target *ErrThresholdNotMet
	return errors.As(err, &target)
}

// ErrNonceConsumed is returned by a Broadcaster when the wallet nonce has
// already been spent on chain. When the consumed transaction matches the
// one being executed, the coordinator recovers it as an idempotent success.
type ErrNonceConsumed struct {
	Nonce uint64
	// TxHash is the hash of the transaction that consumed the nonce, when
	// the broadcaster knows it.
	TxHash string
}

func (e *ErrNonceConsumed) Error() string {
	return fmt.Sprintf("nonce %d already consumed (tx %s)", e.Nonce, e.TxHash)
}

// IsNonceConsumed reports whether err is an ErrNonceConsumed.
func IsNonceConsumed(err error) bool {
	var target *ErrNonceConsumed
	return errors.As(err, &target)
}

var (
	// ErrNotSigner is returned when the submitting identity is not an
	// active member of the wallet.
	ErrNotSigner = errors.New("signer is not an active member of this wallet")

	// ErrTerminalState is returned when mutating a transaction that has
	// already executed, expired, or been cancelled.
	ErrTerminalState = errors.New("transaction is in a terminal state")

	// ErrTransactionExpired is returned when signing past the expiry
	// window.
	ErrTransactionExpired = errors.New("transaction has expired")

	// ErrInvalidSignature is returned when a submitted signature does not
	// recover to the claimed signer address.
	ErrInvalidSignature = errors.New("signature does not match signer address")
)
