package resilience

import (
	"context"
	"errors"
	"time"
)

// Policy composes the resilience components around a dependency call:
// limiter, then breaker, then timeout, with retries on transient failures.
// Every component is optional.
type Policy struct {
	limiter  *LimiterStore
	breaker  *Breaker
	timeout  time.Duration
	retry    RetryConfig
	hasRetry bool
}

type PolicyOption func(*Policy)

// WithLimiter guards calls with a per-key token bucket.
func WithLimiter(store *LimiterStore) PolicyOption {
	return func(p *Policy) { p.limiter = store }
}

// WithBreaker guards calls with a circuit breaker.
func WithBreaker(breaker *Breaker) PolicyOption {
	return func(p *Policy) { p.breaker = breaker }
}

// WithCallTimeout bounds each attempt.
func WithCallTimeout(d time.Duration) PolicyOption {
	return func(p *Policy) { p.timeout = d }
}

// WithRetry retries transient failures per the config.
func WithRetry(config RetryConfig) PolicyOption {
	return func(p *Policy) {
		p.retry = config
		p.hasRetry = true
	}
}

func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Breaker exposes the policy's breaker for state inspection.
func (p *Policy) Breaker() *Breaker { return p.breaker }

// Run executes fn under the policy. When the breaker is open and a fallback
// is provided, the fallback answers instead of the dependency; the same
// applies when retries are exhausted on a call that tripped the breaker.
func Run[T any](ctx context.Context, p *Policy, key string, fn func(ctx context.Context) (T, error), fallback func(ctx context.Context, cause error) (T, error)) (T, error) {
	var zero T
	if p == nil {
		return fn(ctx)
	}
	if p.limiter != nil {
		if err := p.limiter.Allow(key); err != nil {
			return zero, err
		}
	}

	attempt := func() (T, error) {
		if p.breaker != nil {
			if err := p.breaker.Allow(); err != nil {
				return zero, err
			}
		}
		result, err := WithTimeout(ctx, p.timeout, fn)
		if p.breaker != nil && !errors.Is(err, ErrCircuitOpen) {
			if canceledByCaller(ctx, err) {
				p.breaker.Cancel()
			} else {
				p.breaker.Record(err)
			}
		}
		return result, err
	}

	var result T
	var err error
	if p.hasRetry {
		result, err = Retry(ctx, p.retry, attempt)
	} else {
		result, err = attempt()
	}
	if err != nil && errors.Is(err, ErrCircuitOpen) && fallback != nil {
		return fallback(ctx, err)
	}
	return result, err
}

// canceledByCaller reports whether err is the inbound context's own
// cancellation rather than a dependency failure. Impatient callers hanging
// up must not open the circuit against a healthy dependency.
func canceledByCaller(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) && ctx.Err() != nil
}
