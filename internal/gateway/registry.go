// Package gateway routes inbound requests to registered backend services,
// guarding each upstream with rate limiting and circuit breaking.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erpmesh/erpmesh/internal/scaling"
)

var (
	// ErrNoRouteFound indicates no registered service matches the request path.
	ErrNoRouteFound = errors.New("no route found for path")
	// ErrUnavailable indicates the resolved service has zero healthy instances.
	ErrUnavailable = errors.New("service has no healthy instances")
	// ErrUnknownService indicates the service name is not registered.
	ErrUnknownService = errors.New("service not registered")
)

// Instance is one routable replica of a backend service.
type Instance struct {
	ID        string
	URL       *url.URL
	Healthy   bool
	StartedAt time.Time
}

type service struct {
	name    string
	prefix  string
	baseURL *url.URL
	// instances in registration order; next indexes round-robin dispatch.
	instances []*Instance
	next      int
}

var (
	_ scaling.Actuator   = (*Registry)(nil)
	_ scaling.LoadSource = (*Registry)(nil)
)

// Registry maps path prefixes to services and their instances. It doubles as
// the scaling actuator: replica changes register and deregister instances.
type Registry struct {
	mu sync.Mutex
	// services sorted by prefix length, longest first, so the most specific
	// route wins.
	services []*service
	byName   map[string]*service
	load     *loadWindow
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]*service{},
		load:   newLoadWindow(time.Minute, 10),
		now:    time.Now,
	}
}

// Register adds a service under a path prefix with a base upstream URL.
// Scaled-up replicas are minted from the base URL.
func (r *Registry) Register(name, prefix, baseURL string) error {
	name = strings.TrimSpace(name)
	prefix = strings.TrimSpace(prefix)
	if name == "" || prefix == "" || !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("invalid service registration: name=%q prefix=%q", name, prefix)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base URL for %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("base URL for %s must be absolute, got %q", name, baseURL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}
	svc := &service{name: name, prefix: prefix, baseURL: parsed}
	r.byName[name] = svc
	r.services = append(r.services, svc)
	sort.SliceStable(r.services, func(i, j int) bool {
		return len(r.services[i].prefix) > len(r.services[j].prefix)
	})
	return nil
}

// Resolve matches the request path to a service and picks the next healthy
// instance round-robin.
func (r *Registry) Resolve(path string) (string, *Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, svc := range r.services {
		if !matchesPrefix(path, svc.prefix) {
			continue
		}
		healthy := make([]*Instance, 0, len(svc.instances))
		for _, inst := range svc.instances {
			if inst.Healthy {
				healthy = append(healthy, inst)
			}
		}
		if len(healthy) == 0 {
			return svc.name, nil, fmt.Errorf("%w: %s", ErrUnavailable, svc.name)
		}
		inst := healthy[svc.next%len(healthy)]
		svc.next++
		snapshot := *inst
		return svc.name, &snapshot, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrNoRouteFound, path)
}

// SetHealthy flips the health flag of one instance.
func (r *Registry) SetHealthy(serviceName, instanceID string, healthy bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.byName[serviceName]
	if !ok {
		return ErrUnknownService
	}
	for _, inst := range svc.instances {
		if inst.ID == instanceID {
			inst.Healthy = healthy
			return nil
		}
	}
	return fmt.Errorf("instance %s not found in service %s", instanceID, serviceName)
}

// Instances returns a snapshot of a service's instances.
func (r *Registry) Instances(serviceName string) []Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.byName[serviceName]
	if !ok {
		return nil
	}
	out := make([]Instance, 0, len(svc.instances))
	for _, inst := range svc.instances {
		out = append(out, *inst)
	}
	return out
}

// Scale implements scaling.Actuator by registering or deregistering replicas.
// Shrinking retires the newest instances first.
func (r *Registry) Scale(_ context.Context, serviceName string, replicas int) error {
	if replicas < 0 {
		replicas = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.byName[serviceName]
	if !ok {
		return ErrUnknownService
	}
	for len(svc.instances) < replicas {
		svc.instances = append(svc.instances, &Instance{
			ID:        uuid.NewString(),
			URL:       svc.baseURL,
			Healthy:   true,
			StartedAt: r.now(),
		})
	}
	if len(svc.instances) > replicas {
		svc.instances = svc.instances[:replicas]
	}
	return nil
}

// Replicas implements scaling.Actuator.
func (r *Registry) Replicas(_ context.Context, serviceName string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.byName[serviceName]
	if !ok {
		return 0, ErrUnknownService
	}
	return len(svc.instances), nil
}

// RecordRequest feeds the live request load for a service. The router calls
// this on every dispatched request.
func (r *Registry) RecordRequest(serviceName string) {
	r.load.record(serviceName, r.now())
}

// Load implements scaling.LoadSource: observed requests-per-second divided
// by the service's nominal capacity (perReplicaRPS * replicas), clamped 0..1.
func (r *Registry) Load(ctx context.Context, serviceName string) (float64, error) {
	replicas, err := r.Replicas(ctx, serviceName)
	if err != nil {
		return 0, err
	}
	if replicas == 0 {
		return 1, nil
	}
	observed := r.load.ratePerSecond(serviceName, r.now())
	capacity := r.load.perReplicaRPS * float64(replicas)
	if capacity <= 0 {
		return 0, nil
	}
	utilization := observed / capacity
	if utilization > 1 {
		utilization = 1
	}
	return utilization, nil
}

// SetPerReplicaRPS sets the nominal throughput of one replica, used to
// normalize observed load.
func (r *Registry) SetPerReplicaRPS(rps float64) {
	if rps > 0 {
		r.load.perReplicaRPS = rps
	}
}

func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return path[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}

// loadWindow counts requests per service over a sliding window of buckets.
type loadWindow struct {
	mu            sync.Mutex
	buckets       map[string][]bucket
	bucketSize    time.Duration
	maxBuckets    int
	perReplicaRPS float64
}

type bucket struct {
	start time.Time
	count int
}

func newLoadWindow(window time.Duration, buckets int) *loadWindow {
	return &loadWindow{
		buckets:       map[string][]bucket{},
		bucketSize:    window / time.Duration(buckets),
		maxBuckets:    buckets,
		perReplicaRPS: 50,
	}
}

func (w *loadWindow) record(service string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	start := now.Truncate(w.bucketSize)
	list := w.buckets[service]
	if n := len(list); n > 0 && list[n-1].start.Equal(start) {
		list[n-1].count++
	} else {
		list = append(list, bucket{start: start, count: 1})
		if len(list) > w.maxBuckets {
			list = list[len(list)-w.maxBuckets:]
		}
	}
	w.buckets[service] = list
}

func (w *loadWindow) ratePerSecond(service string, now time.Time) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := now.Add(-w.bucketSize * time.Duration(w.maxBuckets))
	var total int
	var oldest time.Time
	for _, b := range w.buckets[service] {
		if b.start.Before(cutoff) {
			continue
		}
		if oldest.IsZero() || b.start.Before(oldest) {
			oldest = b.start
		}
		total += b.count
	}
	if total == 0 {
		return 0
	}
	span := now.Sub(oldest)
	if span < w.bucketSize {
		span = w.bucketSize
	}
	return float64(total) / span.Seconds()
}
