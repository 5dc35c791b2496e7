package resilience

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsBurstThenRejects(t *testing.T) {
	// Near-zero refill so the burst is the effective budget.
	store := NewLimiterStore(0.0001, 5)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Allow("client-a"), "call %d within burst", i+1)
	}
	require.ErrorIs(t, store.Allow("client-a"), ErrRateLimited)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	store := NewLimiterStore(0.0001, 1)

	require.NoError(t, store.Allow("client-a"))
	require.ErrorIs(t, store.Allow("client-a"), ErrRateLimited)
	require.NoError(t, store.Allow("client-b"))
}

func TestLimiterCleanupDropsIdleEntries(t *testing.T) {
	store := NewLimiterStore(0.0001, 1, WithIdleTTL(0))

	require.NoError(t, store.Allow("client-a"))
	require.ErrorIs(t, store.Allow("client-a"), ErrRateLimited)

	store.Cleanup()

	// A fresh entry gets a full bucket again.
	require.NoError(t, store.Allow("client-a"))
}
