package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", ErrTimeout
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	boom := errors.New("constraint violation")
	calls := 0
	_, err := Retry(context.Background(), fastRetryConfig(5), func() (string, error) {
		calls++
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		return "", ErrRateLimited
	})
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, 3, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, fastRetryConfig(5), func() (string, error) {
		calls++
		cancel()
		return "", ErrTimeout
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestWithTimeout(t *testing.T) {
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "too late", nil
		}
	})
	require.ErrorIs(t, err, ErrTimeout)

	result, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "fast", nil
	})
	require.NoError(t, err)
	require.Equal(t, "fast", result)
}
