// Package resilience wraps outbound calls with circuit breaking, rate
// limiting, timeouts and retries. Components compose through Policy but are
// usable standalone.
package resilience

import "errors"

var (
	// ErrCircuitOpen is returned when the breaker rejects a call without invoking the dependency.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrRateLimited is returned when the limiter has no budget for the key.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrTimeout is returned when a wrapped call exceeds its deadline.
	ErrTimeout = errors.New("call timed out")
)

// Transient reports whether an error is worth retrying.
func Transient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}
