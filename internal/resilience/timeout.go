package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline. The wrapped context is always
// cancelled on return, and deadline expiry surfaces as ErrTimeout.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	result, err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return zero, fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if err != nil {
		return zero, err
	}
	return result, nil
}
