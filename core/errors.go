package core

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/cockroachdb/errors"
)

// BridgeCodespace is the codespace of the errors a bridge runtime rejects calls with.
const BridgeCodespace = "bridge"

// Rejections returned by target runtimes.
var (
	ErrMessageAlreadyDelivered     = errorsmod.Register(BridgeCodespace, 2, "messages already delivered")
	ErrMessageTooEarly             = errorsmod.Register(BridgeCodespace, 3, "messages delivered out of order")
	ErrStaleHeader                 = errorsmod.Register(BridgeCodespace, 4, "header is not newer than the best synced header")
	ErrEquivocationAlreadyReported = errorsmod.Register(BridgeCodespace, 5, "equivocation already reported")
	ErrInvalidProof                = errorsmod.Register(BridgeCodespace, 6, "invalid proof")
	ErrAuthoritySetMismatch        = errorsmod.Register(BridgeCodespace, 7, "authority set mismatch")
	ErrUnknownHeader               = errorsmod.Register(BridgeCodespace, 8, "proof anchored to a header unknown to the chain")
	ErrInsufficientBalance         = errorsmod.Register(BridgeCodespace, 9, "insufficient balance to pay the transaction fee")
)

var (
	// ErrConnection marks transient failures talking to a chain node.
	ErrConnection = errors.New("connection error")
	// ErrGuardAborted is returned by a pipeline whose relay guard aborted. It is never retried.
	ErrGuardAborted = errors.New("relay guard aborted")
	// ErrPricing marks failures to price a batch of messages.
	ErrPricing = errors.New("failed to price messages")
)

// IsBenignRejection reports whether err is a rejection caused by the relayer
// acting on state that another relayer (or a previous submission) already advanced.
func IsBenignRejection(err error) bool {
	return errors.IsAny(err,
		ErrMessageAlreadyDelivered,
		ErrMessageTooEarly,
		ErrStaleHeader,
		ErrEquivocationAlreadyReported,
	)
}

// IsFatal reports whether a pipeline must stop on err.
func IsFatal(err error) bool {
	return errors.Is(err, ErrGuardAborted)
}

// classifyChainError marks err as a connection error when the chain says it is one.
func classifyChainError(chain Chain, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnection) {
		return err
	}
	if chain.IsConnectionError(err) {
		return errors.Mark(err, ErrConnection)
	}
	return err
}

// isRetryable is passed to retry.RetryIf so that only connection errors are retried.
func isRetryable(err error) bool {
	return errors.Is(err, ErrConnection)
}
