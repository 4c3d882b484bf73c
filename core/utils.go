package core

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"
)

const defaultRetryDelay = 400 * time.Millisecond

var (
	rtyAttNum = uint(5)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(defaultRetryDelay)
	rtyErr    = retry.LastErrorOnly(true)
)

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryOptions returns the options shared by the relay loops.
func retryOptions(ctx context.Context, delay time.Duration, onRetry retry.OnRetryFunc) []retry.Option {
	del := rtyDel
	if delay > 0 {
		del = retry.Delay(delay)
	}
	return []retry.Option{
		rtyAtt,
		del,
		rtyErr,
		retry.Context(ctx),
		retry.RetryIf(isRetryable),
		retry.OnRetry(onRetry),
	}
}
