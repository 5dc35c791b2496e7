package gateway

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erpmesh/erpmesh/internal/resilience"
	apierrors "github.com/erpmesh/erpmesh/internal/shared/errors"
)

// KeyFunc extracts the rate-limit key from a request.
type KeyFunc func(r *http.Request) string

// RateLimitOptions configures the gateway rate-limit middleware.
type RateLimitOptions struct {
	Store              *resilience.LimiterStore
	Stats              StatsStore
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	RetryAfter         time.Duration
}

// DefaultKeyFunc keys by API-key header when configured, then the first
// X-Forwarded-For hop when trusted, then the remote address.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					if ip := strings.TrimSpace(parts[0]); ip != "" {
						return ip
					}
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// RateLimitMiddleware rejects over-budget callers with a problem+json 429
// and a Retry-After header. Stats recording is best-effort.
func RateLimitMiddleware(opts RateLimitOptions) func(next http.Handler) http.Handler {
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Store == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := opts.KeyFn(r)
			err := opts.Store.Allow(key)
			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), StatsEvent{
					Key:     key,
					Allowed: err == nil,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
			}
			if err != nil {
				w.Header().Set("Retry-After", strconv.Itoa(int(opts.RetryAfter.Seconds())))
				writeProblem(w, apierrors.ErrRateLimited.WithDetail("rate limit exceeded for key "+key))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeProblem(w http.ResponseWriter, problem apierrors.ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
