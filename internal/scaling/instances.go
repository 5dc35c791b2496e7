package scaling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServiceInstance is one running replica of a service.
type ServiceInstance struct {
	ID        string
	Service   string
	Load      float64
	StartedAt time.Time
}

var _ Actuator = (*InstancePool)(nil)

// InstancePool is an in-memory actuator tracking replicas per service. It
// doubles as a load source: each instance carries a reported load metric and
// the pool exposes the mean.
type InstancePool struct {
	mu        sync.RWMutex
	instances map[string][]ServiceInstance
	now       func() time.Time
}

func NewInstancePool() *InstancePool {
	return &InstancePool{instances: map[string][]ServiceInstance{}, now: time.Now}
}

// Scale grows or shrinks the pool for a service to the requested count.
// Shrinking retires the newest instances first.
func (p *InstancePool) Scale(_ context.Context, service string, replicas int) error {
	if replicas < 0 {
		replicas = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.instances[service]
	switch {
	case len(current) < replicas:
		for len(current) < replicas {
			current = append(current, ServiceInstance{
				ID:        uuid.NewString(),
				Service:   service,
				StartedAt: p.now(),
			})
		}
	case len(current) > replicas:
		current = current[:replicas]
	}
	p.instances[service] = current
	return nil
}

// Replicas reports the current replica count for a service.
func (p *InstancePool) Replicas(_ context.Context, service string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances[service]), nil
}

// Instances returns a snapshot of the replicas for a service.
func (p *InstancePool) Instances(service string) []ServiceInstance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ServiceInstance(nil), p.instances[service]...)
}

// ReportLoad records a load sample against one instance.
func (p *InstancePool) ReportLoad(service, instanceID string, load float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.instances[service] {
		if p.instances[service][i].ID == instanceID {
			p.instances[service][i].Load = load
			return
		}
	}
}

// Load implements LoadSource as the mean reported load across instances.
// A service with no instances reports full load so the controller brings it
// back up to its minimum.
func (p *InstancePool) Load(_ context.Context, service string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	instances := p.instances[service]
	if len(instances) == 0 {
		return 1, nil
	}
	var sum float64
	for _, inst := range instances {
		sum += inst.Load
	}
	return sum / float64(len(instances)), nil
}
