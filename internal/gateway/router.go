package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"

	"github.com/erpmesh/erpmesh/internal/resilience"
	apierrors "github.com/erpmesh/erpmesh/internal/shared/errors"
)

// Router dispatches requests to backend instances resolved through the
// registry, wrapping each upstream call in a per-service resilience policy.
type Router struct {
	registry *Registry
	logger   *slog.Logger

	mu          sync.Mutex
	policies    map[string]*resilience.Policy
	callTimeout time.Duration
	breakerOpts []resilience.BreakerOption
}

type RouterOption func(*Router)

// WithRouterLogger injects a slog logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithUpstreamTimeout bounds each proxied call.
func WithUpstreamTimeout(d time.Duration) RouterOption {
	return func(rt *Router) {
		if d > 0 {
			rt.callTimeout = d
		}
	}
}

// WithBreakerOptions configures the per-service circuit breakers.
func WithBreakerOptions(opts ...resilience.BreakerOption) RouterOption {
	return func(rt *Router) {
		rt.breakerOpts = opts
	}
}

func NewRouter(registry *Registry, opts ...RouterOption) *Router {
	rt := &Router{
		registry:    registry,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		policies:    map[string]*resilience.Policy{},
		callTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rt)
		}
	}
	return rt
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serviceName, instance, err := rt.registry.Resolve(r.URL.Path)
	if err != nil {
		rt.respondResolveError(w, r, err)
		return
	}
	rt.registry.RecordRequest(serviceName)

	policy := rt.policyFor(serviceName)
	_, err = resilience.Run(r.Context(), policy, serviceName, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, rt.proxy(ctx, instance, w, r)
	}, nil)
	if err != nil {
		rt.respondUpstreamError(w, r, serviceName, err)
	}
}

func (rt *Router) policyFor(serviceName string) *resilience.Policy {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if policy, ok := rt.policies[serviceName]; ok {
		return policy
	}
	policy := resilience.NewPolicy(
		resilience.WithBreaker(resilience.NewBreaker(rt.breakerOpts...)),
		resilience.WithCallTimeout(rt.callTimeout),
	)
	rt.policies[serviceName] = policy
	return policy
}

// proxy forwards the request to one instance. The reverse proxy writes the
// upstream response directly; a transport error is captured and returned
// without touching the response writer so the caller can reply with a
// problem document.
func (rt *Router) proxy(ctx context.Context, instance *Instance, w http.ResponseWriter, r *http.Request) error {
	var proxyErr error
	p := httputil.NewSingleHostReverseProxy(instance.URL)
	p.ErrorHandler = func(_ http.ResponseWriter, _ *http.Request, err error) {
		// Response writing is deferred to the router's error mapping.
		proxyErr = err
	}
	p.ServeHTTP(w, r.WithContext(ctx))
	if proxyErr != nil {
		if errors.Is(proxyErr, context.DeadlineExceeded) {
			return resilience.ErrTimeout
		}
		return proxyErr
	}
	return nil
}

func (rt *Router) respondResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoRouteFound):
		writeProblem(w, apierrors.ErrNoRoute.WithDetail(err.Error()))
	case errors.Is(err, ErrUnavailable):
		writeProblem(w, apierrors.ErrUnavailable.WithDetail(err.Error()))
	default:
		writeProblem(w, apierrors.ErrInternal.WithDetail(err.Error()))
	}
	rt.logger.Warn("request not dispatched",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

func (rt *Router) respondUpstreamError(w http.ResponseWriter, r *http.Request, serviceName string, err error) {
	var problem apierrors.ProblemDetail
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		problem = apierrors.ErrCircuitOpen.WithDetail("upstream " + serviceName + " is failing, circuit open")
	case errors.Is(err, resilience.ErrRateLimited):
		problem = apierrors.ErrRateLimited.WithDetail(err.Error())
	case errors.Is(err, resilience.ErrTimeout):
		problem = apierrors.ErrTimeout.WithDetail("upstream " + serviceName + " timed out")
	default:
		problem = apierrors.ProblemDetail{
			Type:   apierrors.TypeUnavailable,
			Title:  "Bad Gateway",
			Status: http.StatusBadGateway,
			Detail: err.Error(),
		}
	}
	writeProblem(w, problem)
	rt.logger.Error("upstream call failed",
		slog.String("service", serviceName),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}
