package visibility

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/echolens/echolens/internal/visibility/driver"
)

func fakeSleeper(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetryDoBacksOffExponentially(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Second, Sleeper: fakeSleeper(&delays)}

	attempts := 0
	err := retryDo(context.Background(), policy, func(ctx context.Context) error {
		attempts++
		return &driver.ProviderError{Provider: "openai", StatusCode: 503, Message: "unavailable"}
	}, nil)

	require.Error(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestRetryDoSucceedsAfterTransientFailure(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Second, Sleeper: fakeSleeper(&delays)}

	var retryAttempts []int
	attempts := 0
	err := retryDo(context.Background(), policy, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &driver.ProviderError{Provider: "grok", StatusCode: 429, Message: "rate limited"}
		}
		return nil
	}, func(err error, attempt int) {
		retryAttempts = append(retryAttempts, attempt)
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, []int{1, 2}, retryAttempts)
	require.Len(t, delays, 2)
}

func TestRetryDoDoesNotRetryNonRetryable(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, Sleeper: fakeSleeper(&delays)}

	authErr := &driver.ProviderError{Provider: "openai", StatusCode: 401, Message: "bad key"}
	attempts := 0
	err := retryDo(context.Background(), policy, func(ctx context.Context) error {
		attempts++
		return authErr
	}, nil)

	require.Equal(t, 1, attempts)
	require.Empty(t, delays)

	// The last error comes back unchanged for classification upstream.
	var provErr *driver.ProviderError
	require.True(t, errors.As(err, &provErr))
	require.Same(t, authErr, provErr)
}

func TestRetryDoReturnsLastErrorOnCancellation(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Sleeper: func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}}

	opErr := &driver.ProviderError{Provider: "gemini", StatusCode: 500, Message: "boom"}
	attempts := 0
	err := retryDo(context.Background(), policy, func(ctx context.Context) error {
		attempts++
		return opErr
	}, nil)

	require.Equal(t, 1, attempts)
	require.Same(t, error(opErr), err)
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &driver.ProviderError{StatusCode: 429}, true},
		{"server error", &driver.ProviderError{StatusCode: 502}, true},
		{"auth", &driver.ProviderError{StatusCode: 401}, false},
		{"forbidden", &driver.ProviderError{StatusCode: 403}, false},
		{"bad request", &driver.ProviderError{StatusCode: 400}, false},
		{"transport", &url.Error{Op: "Post", URL: "https://x", Err: errors.New("connection refused")}, true},
		{"parse", &ParseError{Pass: "analysis", Err: errors.New("bad json")}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"unknown", errors.New("mystery"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, retryable(tc.err))
		})
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	require.Equal(t, 2, policy.MaxRetries)
	require.Equal(t, time.Second, policy.BaseDelay)
}
