package core

import (
	"context"
	"fmt"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

type TrackedTransactionStatusKind int

const (
	TxStatusPending TrackedTransactionStatusKind = iota
	TxStatusFinalized
	TxStatusLost
	TxStatusInvalid
)

func (k TrackedTransactionStatusKind) String() string {
	switch k {
	case TxStatusPending:
		return "pending"
	case TxStatusFinalized:
		return "finalized"
	case TxStatusLost:
		return "lost"
	case TxStatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// TrackedTransactionStatus is the terminal status of a submitted transaction.
// Header is set for finalized transactions and Reason for invalid ones.
type TrackedTransactionStatus struct {
	Kind   TrackedTransactionStatusKind
	Header HeaderID
	Reason error
}

func (s TrackedTransactionStatus) String() string {
	switch s.Kind {
	case TxStatusFinalized:
		return fmt.Sprintf("finalized at %s", s.Header)
	case TxStatusInvalid:
		return fmt.Sprintf("invalid: %v", s.Reason)
	default:
		return s.Kind.String()
	}
}

// TransactionTracker follows one submitted transaction until it is finalized,
// rejected or considered lost.
type TransactionTracker struct {
	chain        Chain
	handle       TxHandle
	timeout      time.Duration
	pollInterval time.Duration
	retryDelay   time.Duration
	logger       *log.RelayLogger
}

func NewTransactionTracker(chain Chain, handle TxHandle, timeout, pollInterval time.Duration) *TransactionTracker {
	return &TransactionTracker{
		chain:        chain,
		handle:       handle,
		timeout:      timeout,
		pollInterval: pollInterval,
		retryDelay:   defaultRetryDelay,
		logger:       log.GetLogger().WithModule("core.tracker"),
	}
}

// WithLogger replaces the logger of the tracker.
func (t *TransactionTracker) WithLogger(logger *log.RelayLogger) *TransactionTracker {
	t.logger = logger
	return t
}

// WithRetryDelay replaces the delay between retries of failed status queries.
func (t *TransactionTracker) WithRetryDelay(d time.Duration) *TransactionTracker {
	t.retryDelay = d
	return t
}

// Wait polls the chain until the transaction reaches a terminal status or the
// timeout elapses. A transaction that is not finalized by then is reported lost,
// whether it was never included, included but not finalized, or its status could
// not be queried. A cancelled ctx returns ctx.Err().
func (t *TransactionTracker) Wait(ctx context.Context) (TrackedTransactionStatus, error) {
	ctx, span := tracer.Start(ctx, "TransactionTracker.Wait", WithTxAttributes(t.handle))
	defer span.End()

	deadline := time.Now().Add(t.timeout)
	for {
		var inclusion TxInclusion
		err := retry.Do(func() error {
			var err error
			inclusion, err = t.chain.TxStatus(ctx, t.handle)
			return classifyChainError(t.chain, err)
		}, rtyAtt, retry.Delay(t.retryDelay), rtyErr, retry.Context(ctx), retry.RetryIf(isRetryable), retry.OnRetry(func(n uint, err error) {
			t.logger.InfoContext(ctx,
				"retrying to query transaction status",
				"tx", t.handle.String(),
				"try", n+1,
				"try_limit", rtyAttNum,
				"error", err.Error(),
			)
		}))
		switch {
		case ctx.Err() != nil:
			return TrackedTransactionStatus{Kind: TxStatusPending}, ctx.Err()
		case err != nil && !isRetryable(err):
			return TrackedTransactionStatus{Kind: TxStatusPending}, errors.Wrapf(err, "failed to query status of %s", t.handle)
		case err != nil:
			t.logger.WarnErrorContext(ctx, "transaction status is unavailable", err, "tx", t.handle.String())
		case inclusion.Status == TxIncluded && inclusion.ExecutionErr != nil:
			return t.finish(ctx, TrackedTransactionStatus{Kind: TxStatusInvalid, Reason: inclusion.ExecutionErr}), nil
		case inclusion.Status == TxIncluded && inclusion.Finalized:
			return t.finish(ctx, TrackedTransactionStatus{Kind: TxStatusFinalized, Header: inclusion.Block}), nil
		}
		if time.Now().After(deadline) {
			return t.finish(ctx, TrackedTransactionStatus{Kind: TxStatusLost}), nil
		}

		if err := wait(ctx, t.pollInterval); err != nil {
			return TrackedTransactionStatus{Kind: TxStatusPending}, err
		}
	}
}

func (t *TransactionTracker) finish(ctx context.Context, status TrackedTransactionStatus) TrackedTransactionStatus {
	telemetry.TxOutcomeCounter.Add(ctx, 1, api.WithAttributes(
		AttributeKeyChainID.String(t.handle.ChainID),
		AttributeKeyCall.String(string(t.handle.Call)),
		attribute.String("outcome", status.Kind.String()),
	))
	t.logger.DebugContext(ctx, "transaction tracking finished", "tx", t.handle.String(), "status", status.String())
	return status
}
