package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erpmesh/erpmesh/internal/resilience"
	apierrors "github.com/erpmesh/erpmesh/internal/shared/errors"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddlewareRejectsOverBudget(t *testing.T) {
	const budget = 3
	stats := NewMemoryStatsStore()
	handler := RateLimitMiddleware(RateLimitOptions{
		Store: resilience.NewLimiterStore(0.0001, budget),
		Stats: stats,
	})(okHandler())

	for i := 0; i < budget; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "call %d within budget", i+1)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, apierrors.TypeRateLimited, problem.Type)

	total := stats.Total()
	require.Equal(t, int64(budget), total.Allowed)
	require.Equal(t, int64(1), total.Denied)
}

func TestRateLimitMiddlewareKeysByClient(t *testing.T) {
	handler := RateLimitMiddleware(RateLimitOptions{
		Store: resilience.NewLimiterStore(0.0001, 1),
	})(okHandler())

	first := httptest.NewRecorder()
	reqA := httptest.NewRequest(http.MethodGet, "/users", nil)
	reqA.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(first, reqA)
	require.Equal(t, http.StatusOK, first.Code)

	blocked := httptest.NewRecorder()
	reqA2 := httptest.NewRequest(http.MethodGet, "/users", nil)
	reqA2.RemoteAddr = "10.0.0.1:5678"
	handler.ServeHTTP(blocked, reqA2)
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)

	other := httptest.NewRecorder()
	reqB := httptest.NewRequest(http.MethodGet, "/users", nil)
	reqB.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(other, reqB)
	require.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimitMiddlewarePrefersKeyHeader(t *testing.T) {
	handler := RateLimitMiddleware(RateLimitOptions{
		Store:     resilience.NewLimiterStore(0.0001, 1),
		KeyHeader: "X-Api-Key",
	})(okHandler())

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("X-Api-Key", "tenant-a")
	handler.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/users", nil)
	req2.Header.Set("X-Api-Key", "tenant-a")
	req2.RemoteAddr = "10.9.9.9:1" // different address, same tenant
	handler.ServeHTTP(second, req2)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}
