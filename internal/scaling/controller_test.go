package scaling

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubLoadSource struct {
	mu    sync.Mutex
	loads map[string]float64
}

func (s *stubLoadSource) set(service string, load float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loads == nil {
		s.loads = map[string]float64{}
	}
	s.loads[service] = load
}

func (s *stubLoadSource) Load(_ context.Context, service string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[service], nil
}

func newTestController(t *testing.T, spec ServiceSpec, initialReplicas int) (*Controller, *stubLoadSource, *InstancePool) {
	t.Helper()
	source := &stubLoadSource{}
	pool := NewInstancePool()
	require.NoError(t, pool.Scale(context.Background(), spec.Name, initialReplicas))

	controller := NewController(source, pool)
	require.NoError(t, controller.Monitor(spec))
	return controller, source, pool
}

func TestControllerScalesUpAboveHighWatermark(t *testing.T) {
	spec := ServiceSpec{Name: "orders", MinReplicas: 1, MaxReplicas: 5}
	controller, source, pool := newTestController(t, spec, 2)

	source.set("orders", 0.95)
	require.NoError(t, controller.Tick(context.Background()))

	replicas, err := pool.Replicas(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, 3, replicas)

	state, err := controller.State("orders")
	require.NoError(t, err)
	require.Equal(t, StateScalingUp, state)
}

func TestControllerScalesDownBelowLowWatermark(t *testing.T) {
	spec := ServiceSpec{Name: "orders", MinReplicas: 1, MaxReplicas: 5}
	controller, source, pool := newTestController(t, spec, 3)

	source.set("orders", 0.05)
	require.NoError(t, controller.Tick(context.Background()))

	replicas, err := pool.Replicas(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, 2, replicas)

	state, err := controller.State("orders")
	require.NoError(t, err)
	require.Equal(t, StateScalingDown, state)
}

func TestControllerStableWithinBand(t *testing.T) {
	spec := ServiceSpec{Name: "orders", MinReplicas: 1, MaxReplicas: 5}
	controller, source, pool := newTestController(t, spec, 2)

	source.set("orders", 0.50)
	require.NoError(t, controller.Tick(context.Background()))

	replicas, err := pool.Replicas(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, 2, replicas)

	state, err := controller.State("orders")
	require.NoError(t, err)
	require.Equal(t, StateStable, state)
}

func TestControllerReplicasNeverLeaveBounds(t *testing.T) {
	spec := ServiceSpec{Name: "orders", MinReplicas: 1, MaxReplicas: 3}
	controller, source, pool := newTestController(t, spec, 3)

	// Sustained overload never pushes past max.
	source.set("orders", 1.0)
	for i := 0; i < 10; i++ {
		require.NoError(t, controller.Tick(context.Background()))
		replicas, err := pool.Replicas(context.Background(), "orders")
		require.NoError(t, err)
		require.LessOrEqual(t, replicas, spec.MaxReplicas)
	}
	replicas, err := pool.Replicas(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, spec.MaxReplicas, replicas)

	// Sustained idleness never drops below min.
	source.set("orders", 0.0)
	for i := 0; i < 10; i++ {
		require.NoError(t, controller.Tick(context.Background()))
		replicas, err = pool.Replicas(context.Background(), "orders")
		require.NoError(t, err)
		require.GreaterOrEqual(t, replicas, spec.MinReplicas)
	}
	replicas, err = pool.Replicas(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, spec.MinReplicas, replicas)
}

func TestControllerHandlesManyServicesIndependently(t *testing.T) {
	source := &stubLoadSource{}
	pool := NewInstancePool()
	controller := NewController(source, pool)

	require.NoError(t, controller.Monitor(ServiceSpec{Name: "users", MinReplicas: 1, MaxReplicas: 4}))
	require.NoError(t, controller.Monitor(ServiceSpec{Name: "products", MinReplicas: 1, MaxReplicas: 4}))
	require.NoError(t, pool.Scale(context.Background(), "users", 2))
	require.NoError(t, pool.Scale(context.Background(), "products", 2))

	source.set("users", 0.90)
	source.set("products", 0.10)
	require.NoError(t, controller.Tick(context.Background()))

	users, err := pool.Replicas(context.Background(), "users")
	require.NoError(t, err)
	require.Equal(t, 3, users)

	products, err := pool.Replicas(context.Background(), "products")
	require.NoError(t, err)
	require.Equal(t, 1, products)
}

func TestMonitorRejectsInvalidBounds(t *testing.T) {
	controller := NewController(&stubLoadSource{}, NewInstancePool())

	require.ErrorIs(t, controller.Monitor(ServiceSpec{Name: "orders", MinReplicas: 3, MaxReplicas: 1}), ErrInvalidBounds)
	require.ErrorIs(t, controller.Monitor(ServiceSpec{MinReplicas: 1, MaxReplicas: 2}), ErrInvalidBounds)
}

func TestInstancePoolLoadAggregation(t *testing.T) {
	pool := NewInstancePool()
	require.NoError(t, pool.Scale(context.Background(), "orders", 2))

	instances := pool.Instances("orders")
	require.Len(t, instances, 2)

	pool.ReportLoad("orders", instances[0].ID, 0.4)
	pool.ReportLoad("orders", instances[1].ID, 0.8)

	load, err := pool.Load(context.Background(), "orders")
	require.NoError(t, err)
	require.InDelta(t, 0.6, load, 1e-9)

	// An empty pool reports full load.
	load, err = pool.Load(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, 1.0, load)
}
