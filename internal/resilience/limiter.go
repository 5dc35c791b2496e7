package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore hands out a token-bucket limiter per key (client IP, API key,
// upstream name). Entries idle past the TTL are dropped by the janitor.
type LimiterStore struct {
	mu           sync.Mutex
	entries      map[string]*limiterEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type LimiterOption func(*LimiterStore)

// WithIdleTTL sets how long an unused key survives before cleanup.
func WithIdleTTL(d time.Duration) LimiterOption {
	return func(s *LimiterStore) { s.idleTTL = d }
}

// WithCleanupEvery sets the janitor interval.
func WithCleanupEvery(d time.Duration) LimiterOption {
	return func(s *LimiterStore) { s.cleanupEvery = d }
}

func NewLimiterStore(rps float64, burst int, opts ...LimiterOption) *LimiterStore {
	s := &LimiterStore{
		entries:      make(map[string]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *LimiterStore) RPS() float64 { return float64(s.rps) }
func (s *LimiterStore) Burst() int   { return s.burst }

// Allow consumes one token for the key, returning ErrRateLimited when the
// bucket is empty.
func (s *LimiterStore) Allow(key string) error {
	if s.get(key).Allow() {
		return nil
	}
	return ErrRateLimited
}

func (s *LimiterStore) get(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops entries idle past the TTL.
func (s *LimiterStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

// StartJanitor cleans idle keys periodically until the context is cancelled.
func (s *LimiterStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
