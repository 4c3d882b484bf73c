package core

import (
	"context"
	"sync"
	"testing"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNodeDown = errors.New("node down")

// stubChain answers TxStatus from a script and treats errNodeDown as a connection error.
type stubChain struct {
	Chain

	mu       sync.Mutex
	script   []func() (TxInclusion, error)
	fallback func() (TxInclusion, error)
	calls    int
}

func (c *stubChain) ChainID() string { return "stub" }

func (c *stubChain) IsConnectionError(err error) bool {
	return errors.Is(err, errNodeDown)
}

func (c *stubChain) TxStatus(ctx context.Context, handle TxHandle) (TxInclusion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.script) > 0 {
		next := c.script[0]
		c.script = c.script[1:]
		return next()
	}
	return c.fallback()
}

func inclusion(status TxInclusionStatus, finalized bool, execErr error) func() (TxInclusion, error) {
	return func() (TxInclusion, error) {
		return TxInclusion{Status: status, Block: NewHeaderID(7, []byte{7}), Finalized: finalized, ExecutionErr: execErr}, nil
	}
}

func failure(err error) func() (TxInclusion, error) {
	return func() (TxInclusion, error) { return TxInclusion{}, err }
}

func TestWait(t *testing.T) {
	assert.NoError(t, wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClassifyChainError(t *testing.T) {
	chain := &stubChain{}

	assert.NoError(t, classifyChainError(chain, nil))

	err := classifyChainError(chain, errors.Wrap(errNodeDown, "query"))
	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, isRetryable(err))

	err = classifyChainError(chain, ErrInvalidProof.Wrap("bad"))
	assert.False(t, isRetryable(err))
	assert.True(t, errors.Is(err, ErrInvalidProof))
}

func TestIsBenignRejection(t *testing.T) {
	for _, err := range []error{
		ErrMessageAlreadyDelivered,
		ErrMessageTooEarly.Wrap("nonce 5"),
		errors.Wrap(ErrStaleHeader.Wrap("header #3"), "submit"),
		ErrEquivocationAlreadyReported,
	} {
		assert.True(t, IsBenignRejection(err), err.Error())
	}
	for _, err := range []error{
		ErrInvalidProof,
		ErrInsufficientBalance,
		ErrGuardAborted,
		errors.New("unknown"),
	} {
		assert.False(t, IsBenignRejection(err), err.Error())
	}
	assert.True(t, IsFatal(errors.Wrap(ErrGuardAborted, "balance")))
	assert.False(t, IsFatal(ErrConnection))
}

func TestRetryOptionsRetryOnlyConnectionErrors(t *testing.T) {
	ctx := context.Background()
	chain := &stubChain{}

	var attempts int
	err := retry.Do(func() error {
		attempts++
		return classifyChainError(chain, errNodeDown)
	}, retryOptions(ctx, time.Millisecond, func(uint, error) {})...)
	require.Error(t, err)
	assert.EqualValues(t, rtyAttNum, attempts)

	attempts = 0
	err = retry.Do(func() error {
		attempts++
		return classifyChainError(chain, ErrInvalidProof)
	}, retryOptions(ctx, time.Millisecond, func(uint, error) {})...)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	attempts = 0
	err = retry.Do(func() error {
		attempts++
		if attempts < 3 {
			return classifyChainError(chain, errNodeDown)
		}
		return nil
	}, retryOptions(ctx, time.Millisecond, func(uint, error) {})...)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestTransactionTracker(t *testing.T) {
	handle := TxHandle{ChainID: "stub", Hash: []byte{1, 2, 3}, Call: CallKindSubmitFinalityProof}
	tests := []struct {
		name     string
		script   []func() (TxInclusion, error)
		fallback func() (TxInclusion, error)
		timeout  time.Duration
		want     TrackedTransactionStatusKind
		wantErr  bool
	}{
		{
			name:     "finalized after pool",
			script:   []func() (TxInclusion, error){inclusion(TxInPool, false, nil), inclusion(TxIncluded, false, nil)},
			fallback: inclusion(TxIncluded, true, nil),
			timeout:  time.Second,
			want:     TxStatusFinalized,
		},
		{
			name:     "execution failure",
			fallback: inclusion(TxIncluded, false, ErrInvalidProof.Wrap("bad votes")),
			timeout:  time.Second,
			want:     TxStatusInvalid,
		},
		{
			name:     "never included",
			fallback: inclusion(TxUnknown, false, nil),
			timeout:  30 * time.Millisecond,
			want:     TxStatusLost,
		},
		{
			name:     "included but never finalized",
			fallback: inclusion(TxIncluded, false, nil),
			timeout:  30 * time.Millisecond,
			want:     TxStatusLost,
		},
		{
			name:     "node unreachable until timeout",
			fallback: failure(errNodeDown),
			timeout:  20 * time.Millisecond,
			want:     TxStatusLost,
		},
		{
			name:     "connection failures are survived",
			script:   []func() (TxInclusion, error){failure(errNodeDown), failure(errNodeDown), failure(errNodeDown)},
			fallback: inclusion(TxIncluded, true, nil),
			timeout:  10 * time.Millisecond,
			want:     TxStatusFinalized,
		},
		{
			name:     "other query failures end tracking",
			fallback: failure(errors.New("malformed response")),
			timeout:  time.Second,
			want:     TxStatusPending,
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &stubChain{script: tt.script, fallback: tt.fallback}
			status, err := NewTransactionTracker(chain, handle, tt.timeout, time.Millisecond).
				WithRetryDelay(time.Millisecond).
				Wait(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, status.Kind, status.String())
		})
	}
}

func TestTransactionTrackerCancel(t *testing.T) {
	chain := &stubChain{fallback: inclusion(TxInPool, false, nil)}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	status, err := NewTransactionTracker(chain, TxHandle{ChainID: "stub"}, time.Hour, time.Millisecond).Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, TxStatusPending, status.Kind)
}
