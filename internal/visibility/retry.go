package visibility

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/echolens/echolens/internal/visibility/driver"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = time.Second
)

// RetryPolicy bounds the per-cell retry loop.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is doubled after every retryable failure.
	BaseDelay time.Duration

	// Sleeper overrides how waits are performed (useful for tests).
	Sleeper func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is the policy the orchestrator applies per work unit:
// 2 retries (3 total attempts) with a 1-second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: defaultMaxRetries, BaseDelay: defaultBaseDelay}
}

// retryable decides whether a failure is worth repeating. Transport
// failures and provider 429/5xx responses are; authentication failures,
// other 4xx responses, parse failures, and anything unclassified are not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		// Retrying will not fix malformed output from the same model call.
		return false
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		switch {
		case perr.StatusCode == 429:
			return true
		case perr.StatusCode >= 500 && perr.StatusCode <= 599:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return false
}

// retryDo invokes op with bounded exponential backoff. onRetry fires before
// each wait with the failure and the attempt number that failed. The last
// error is returned unchanged so callers can still classify it.
func retryDo(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error, onRetry func(err error, attempt int)) error {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	base := policy.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	sleep := policy.Sleeper
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt > maxRetries || !retryable(lastErr) {
			return lastErr
		}
		if onRetry != nil {
			onRetry(lastErr, attempt)
		}
		delay := base << (attempt - 1)
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
