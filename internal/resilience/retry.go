package resilience

import (
	"context"
	"time"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Total attempts including the first call
	BaseDelay   time.Duration // Initial delay between attempts
	MaxDelay    time.Duration // Upper bound on the delay
	Multiplier  float64       // Exponential backoff multiplier
}

// DefaultRetryConfig returns sensible defaults for dependency calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2.0,
	}
}

// Retry executes fn with exponential backoff, retrying only transient
// failures. Context cancellation aborts immediately.
func Retry[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	backoff := config.BaseDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !Transient(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < config.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
