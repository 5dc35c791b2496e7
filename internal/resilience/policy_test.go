package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPolicyFallbackAfterBreakerTrips(t *testing.T) {
	const threshold = 5
	policy := NewPolicy(WithBreaker(NewBreaker(WithFailureThreshold(threshold))))
	boom := errors.New("upstream down")

	calls := 0
	call := func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	}
	fallback := func(ctx context.Context, cause error) (string, error) {
		return "cached", nil
	}

	for i := 0; i < threshold; i++ {
		_, err := Run(context.Background(), policy, "svc", call, fallback)
		require.ErrorIs(t, err, boom)
	}
	require.Equal(t, threshold, calls)
	require.Equal(t, StateOpen, policy.Breaker().State())

	// Once open, the fallback answers and the dependency is not invoked.
	result, err := Run(context.Background(), policy, "svc", call, fallback)
	require.NoError(t, err)
	require.Equal(t, "cached", result)
	require.Equal(t, threshold, calls)
}

func TestPolicyCircuitOpenWithoutFallback(t *testing.T) {
	policy := NewPolicy(WithBreaker(NewBreaker(WithFailureThreshold(1))))
	boom := errors.New("upstream down")

	_, err := Run(context.Background(), policy, "svc", func(ctx context.Context) (string, error) {
		return "", boom
	}, nil)
	require.ErrorIs(t, err, boom)

	_, err = Run(context.Background(), policy, "svc", func(ctx context.Context) (string, error) {
		t.Fatal("dependency must not be invoked while open")
		return "", nil
	}, nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestPolicyRateLimitsPerKey(t *testing.T) {
	const budget = 3
	policy := NewPolicy(WithLimiter(NewLimiterStore(0.0001, budget)))

	call := func(ctx context.Context) (string, error) { return "ok", nil }

	for i := 0; i < budget; i++ {
		_, err := Run(context.Background(), policy, "client-a", call, nil)
		require.NoError(t, err)
	}
	// The (budget+1)th call is rejected before reaching the dependency.
	_, err := Run(context.Background(), policy, "client-a", func(ctx context.Context) (string, error) {
		t.Fatal("dependency must not be invoked once limited")
		return "", nil
	}, nil)
	require.ErrorIs(t, err, ErrRateLimited)

	_, err = Run(context.Background(), policy, "client-b", call, nil)
	require.NoError(t, err)
}

func TestPolicyClientCancellationDoesNotTripBreaker(t *testing.T) {
	policy := NewPolicy(WithBreaker(NewBreaker(WithFailureThreshold(1))))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Run(ctx, policy, "svc", func(ctx context.Context) (string, error) {
		// The caller hangs up mid-call.
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateClosed, policy.Breaker().State())

	// The dependency stays reachable for the next caller.
	result, err := Run(context.Background(), policy, "svc", func(ctx context.Context) (string, error) {
		return "ok", nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", result)
}

func TestPolicyRetriesTransientThenSucceeds(t *testing.T) {
	policy := NewPolicy(
		WithCallTimeout(20*time.Millisecond),
		WithRetry(fastRetryConfig(3)),
	)

	calls := 0
	result, err := Run(context.Background(), policy, "svc", func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "recovered", nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "recovered", result)
	require.Equal(t, 2, calls)
}
