package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(WithFailureThreshold(3))
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.Record(boom)
	}
	require.Equal(t, StateClosed, b.State())

	require.NoError(t, b.Allow())
	b.Record(boom)
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(WithFailureThreshold(3))
	boom := errors.New("boom")

	b.Record(boom)
	b.Record(boom)
	b.Record(nil)
	b.Record(boom)
	b.Record(boom)
	require.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	current := time.Unix(1000, 0)
	clock := func() time.Time { return current }
	b := NewBreaker(WithFailureThreshold(1), WithCooldown(10*time.Second), WithBreakerClock(clock))

	b.Record(errors.New("boom"))
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	current = current.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	// Failed trial reopens immediately.
	b.Record(errors.New("still down"))
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	current = current.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	b.Record(nil)
	require.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Allow())
}

func TestBreakerCancelReleasesHalfOpenTrial(t *testing.T) {
	current := time.Unix(1000, 0)
	clock := func() time.Time { return current }
	b := NewBreaker(WithFailureThreshold(1), WithCooldown(10*time.Second), WithBreakerClock(clock))

	b.Record(errors.New("boom"))
	current = current.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	// An abandoned trial must not leave the breaker wedged half-open.
	b.Cancel()
	require.Equal(t, StateOpen, b.State())
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerHalfOpenAdmitsSingleTrial(t *testing.T) {
	current := time.Unix(1000, 0)
	clock := func() time.Time { return current }
	b := NewBreaker(WithFailureThreshold(1), WithCooldown(10*time.Second), WithBreakerClock(clock))

	b.Record(errors.New("boom"))
	require.Equal(t, StateOpen, b.State())

	current = current.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	// Only one trial may be in flight; a burst of callers arriving after
	// the cooldown must not all reach the dependency.
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	b.Record(nil)
	require.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Allow())
}
