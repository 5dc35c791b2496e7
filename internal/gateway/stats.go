package gateway

import (
	"context"
	"sync"
	"time"
)

// StatsEvent is one rate-limit decision. Method/Path are generic strings so
// the store stays transport-agnostic.
type StatsEvent struct {
	Key     string
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persists rate-limit statistics. Implementations are best-effort;
// the middleware never fails a request on a stats error.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// Counters aggregates allowed/denied decisions.
type Counters struct {
	Allowed int64
	Denied  int64
}

// MemoryStatsStore keeps counters in memory. Useful for tests and
// development; it does not expire anything.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{
		byRoute: make(map[string]Counters),
		byKey:   make(map[string]Counters),
	}
}

func (s *MemoryStatsStore) Record(_ context.Context, ev StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Allowed {
		s.total.Allowed++
	} else {
		s.total.Denied++
	}
	c := s.byRoute[route]
	if ev.Allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	s.byRoute[route] = c
	k := s.byKey[ev.Key]
	if ev.Allowed {
		k.Allowed++
	} else {
		k.Denied++
	}
	s.byKey[ev.Key] = k
	return nil
}

// Total returns the aggregate counters.
func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByKey returns the counters for one key.
func (s *MemoryStatsStore) ByKey(key string) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[key]
}
