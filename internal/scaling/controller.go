// Package scaling implements the per-service autoscaling control loop.
package scaling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// State enumerates the controller state per monitored service.
type State string

const (
	StateIdle        State = "idle"
	StateScalingUp   State = "scaling_up"
	StateScalingDown State = "scaling_down"
	StateStable      State = "stable"
)

const (
	// DefaultHighWatermark is the utilization above which a service scales up.
	DefaultHighWatermark = 0.80
	// DefaultLowWatermark is the utilization below which a service scales down.
	DefaultLowWatermark = 0.20
)

var (
	ErrUnknownService = errors.New("service not monitored")
	ErrInvalidBounds  = errors.New("replica bounds are invalid")
)

// ServiceSpec declares the scaling envelope for one service.
type ServiceSpec struct {
	Name          string
	MinReplicas   int
	MaxReplicas   int
	HighWatermark float64
	LowWatermark  float64
}

func (s ServiceSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalidBounds)
	}
	if s.MinReplicas < 0 || s.MaxReplicas < 1 || s.MinReplicas > s.MaxReplicas {
		return fmt.Errorf("%w: min=%d max=%d", ErrInvalidBounds, s.MinReplicas, s.MaxReplicas)
	}
	return nil
}

func (s ServiceSpec) withDefaults() ServiceSpec {
	if s.HighWatermark <= 0 {
		s.HighWatermark = DefaultHighWatermark
	}
	if s.LowWatermark <= 0 {
		s.LowWatermark = DefaultLowWatermark
	}
	return s
}

// LoadSource samples the current utilization of a service, normalized 0..1.
type LoadSource interface {
	Load(ctx context.Context, service string) (float64, error)
}

// Actuator applies a replica count to a service and reports the current one.
type Actuator interface {
	Scale(ctx context.Context, service string, replicas int) error
	Replicas(ctx context.Context, service string) (int, error)
}

type monitored struct {
	spec  ServiceSpec
	state State
}

// Controller evaluates all monitored services on a poll cycle and steps
// replica counts one at a time toward the load watermarks. Decisions for
// different services run concurrently with no ordering guarantee.
type Controller struct {
	mu       sync.Mutex
	services map[string]*monitored
	source   LoadSource
	actuator Actuator
	logger   *slog.Logger
}

type ControllerOption func(*Controller)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewController(source LoadSource, actuator Actuator, opts ...ControllerOption) *Controller {
	c := &Controller{
		services: map[string]*monitored{},
		source:   source,
		actuator: actuator,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Monitor registers a service for scaling decisions.
func (c *Controller) Monitor(spec ServiceSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[spec.Name] = &monitored{spec: spec.withDefaults(), state: StateIdle}
	return nil
}

// State reports the last decision state for a service.
func (c *Controller) State(service string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.services[service]
	if !ok {
		return "", ErrUnknownService
	}
	return m.state, nil
}

// Tick evaluates every monitored service once, concurrently.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return c.evaluate(ctx, name)
		})
	}
	return g.Wait()
}

// Run drives the control loop until the context is cancelled. There is no
// terminal state; cancellation is the only way out.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Tick(ctx); err != nil {
				c.logger.Warn("scaling tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (c *Controller) evaluate(ctx context.Context, service string) error {
	c.mu.Lock()
	m, ok := c.services[service]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	spec := m.spec
	c.mu.Unlock()

	load, err := c.source.Load(ctx, service)
	if err != nil {
		return fmt.Errorf("sample load for %s: %w", service, err)
	}
	replicas, err := c.actuator.Replicas(ctx, service)
	if err != nil {
		return fmt.Errorf("read replicas for %s: %w", service, err)
	}

	next := replicas
	state := StateStable
	switch {
	case load > spec.HighWatermark && replicas < spec.MaxReplicas:
		next = replicas + 1
		state = StateScalingUp
	case load < spec.LowWatermark && replicas > spec.MinReplicas:
		next = replicas - 1
		state = StateScalingDown
	}

	if next != replicas {
		if err := c.actuator.Scale(ctx, service, next); err != nil {
			return fmt.Errorf("scale %s to %d: %w", service, next, err)
		}
		c.logger.Info("scaled service",
			slog.String("service", service),
			slog.Float64("load", load),
			slog.Int("from", replicas),
			slog.Int("to", next),
		)
	}

	c.setState(service, state)
	return nil
}

func (c *Controller) setState(service string, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.services[service]; ok {
		m.state = state
	}
}
