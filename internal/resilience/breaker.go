package resilience

import (
	"sync"
	"time"
)

// BreakerState enumerates circuit breaker states.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 30 * time.Second
)

// Breaker is a consecutive-failure circuit breaker. Closed counts failures
// and trips to Open at the threshold; Open rejects until the cooldown
// elapses, then admits a single half-open trial. The trial's outcome decides
// between Closed and Open.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	failureThreshold int
	cooldown         time.Duration
	openedAt         time.Time
	now              func() time.Time
}

type BreakerOption func(*Breaker)

// WithFailureThreshold sets how many consecutive failures trip the breaker.
func WithFailureThreshold(n int) BreakerOption {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before a half-open trial.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithBreakerClock overrides the time source for deterministic testing.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBreaker(opts ...BreakerOption) *Breaker {
	b := &Breaker{
		state:            StateClosed,
		failureThreshold: defaultFailureThreshold,
		cooldown:         defaultCooldown,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Allow reports whether a call may proceed. The first Allow after the
// cooldown moves the breaker to HalfOpen and admits that caller as the sole
// trial; further callers are rejected until Record resolves the trial.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		// Trial already in flight.
		return ErrCircuitOpen
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.state = StateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	}
	return nil
}

// Record feeds a call outcome into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.state = StateClosed
		return
	}
	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	}
}

// Cancel releases an admitted call without judging the dependency, for
// callers that abandoned the call themselves. A half-open trial returns to
// Open so a later caller can probe again.
func (b *Breaker) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.state = StateOpen
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.failures = 0
	b.openedAt = b.now()
}
