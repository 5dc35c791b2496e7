package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erpmesh/erpmesh/internal/resilience"
	apierrors "github.com/erpmesh/erpmesh/internal/shared/errors"
)

func TestRouterProxiesToUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "users")
		_, _ = io.WriteString(w, "hello from users")
	}))
	defer upstream.Close()

	registry := NewRegistry()
	require.NoError(t, registry.Register("users", "/users", upstream.URL))
	require.NoError(t, registry.Scale(context.Background(), "users", 1))

	router := NewRouter(registry)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "users", rec.Header().Get("X-Upstream"))
	require.Equal(t, "hello from users", rec.Body.String())
}

func TestRouterNoRouteProblem(t *testing.T) {
	router := NewRouter(NewRegistry())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, apierrors.TypeNoRoute, problem.Type)
}

func TestRouterUnavailableProblem(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("users", "/users", "http://users.internal:8080"))

	router := NewRouter(registry)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, apierrors.TypeUnavailable, problem.Type)
}

func TestRouterBreakerOpensAfterUpstreamFailures(t *testing.T) {
	registry := NewRegistry()
	// Nothing listens on this address; every proxied call fails fast.
	require.NoError(t, registry.Register("orders", "/orders", "http://127.0.0.1:1"))
	require.NoError(t, registry.Scale(context.Background(), "orders", 1))

	const threshold = 3
	router := NewRouter(registry, WithBreakerOptions(resilience.WithFailureThreshold(threshold)))

	for i := 0; i < threshold; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
		require.Equal(t, http.StatusBadGateway, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, apierrors.TypeCircuitOpen, problem.Type)
}
