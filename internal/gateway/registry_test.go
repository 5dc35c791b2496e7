package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register("users", "/users", "http://users.internal:8080"))
	require.NoError(t, registry.Register("orders", "/orders", "http://orders.internal:8080"))
	return registry
}

func TestResolveNoRoute(t *testing.T) {
	registry := newTestRegistry(t)

	_, _, err := registry.Resolve("/payments/123")
	require.ErrorIs(t, err, ErrNoRouteFound)
}

func TestResolveUnavailableWithoutInstances(t *testing.T) {
	registry := newTestRegistry(t)

	name, _, err := registry.Resolve("/users/42")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, "users", name)
}

func TestResolveRoundRobinAcrossHealthyInstances(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.Scale(context.Background(), "users", 3))

	instances := registry.Instances("users")
	require.Len(t, instances, 3)
	require.NoError(t, registry.SetHealthy("users", instances[1].ID, false))

	seen := map[string]int{}
	for i := 0; i < 6; i++ {
		_, inst, err := registry.Resolve("/users")
		require.NoError(t, err)
		require.True(t, inst.Healthy)
		seen[inst.ID]++
	}
	require.Len(t, seen, 2)
	require.Equal(t, 3, seen[instances[0].ID])
	require.Equal(t, 3, seen[instances[2].ID])
}

func TestResolvePrefixBoundary(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("users", "/users", "http://users.internal:8080"))
	require.NoError(t, registry.Scale(context.Background(), "users", 1))

	_, _, err := registry.Resolve("/users")
	require.NoError(t, err)
	_, _, err = registry.Resolve("/users/42")
	require.NoError(t, err)
	// A longer segment sharing the prefix must not match.
	_, _, err = registry.Resolve("/userspace")
	require.ErrorIs(t, err, ErrNoRouteFound)
}

func TestScaleActsAsActuator(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Scale(ctx, "orders", 4))
	replicas, err := registry.Replicas(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 4, replicas)

	require.NoError(t, registry.Scale(ctx, "orders", 2))
	replicas, err = registry.Replicas(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 2, replicas)

	require.ErrorIs(t, registry.Scale(ctx, "ghost", 1), ErrUnknownService)
}

func TestLoadReflectsRecordedRequests(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, registry.Scale(ctx, "users", 1))
	registry.SetPerReplicaRPS(1000)

	load, err := registry.Load(ctx, "users")
	require.NoError(t, err)
	require.Zero(t, load)

	for i := 0; i < 100; i++ {
		registry.RecordRequest("users")
	}
	load, err = registry.Load(ctx, "users")
	require.NoError(t, err)
	require.Greater(t, load, 0.0)
	require.LessOrEqual(t, load, 1.0)

	// A service with zero replicas reports saturation.
	load, err = registry.Load(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 1.0, load)
}
