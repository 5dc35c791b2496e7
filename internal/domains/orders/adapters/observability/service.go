package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordertypes "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
)

const tracerName = "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/observability/service"

// Service decorates an orders application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// PlaceOrder persists a new order with instrumentation.
func (s *Service) PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.PlaceOrder",
		attribute.String("order.user_id", input.UserID),
		attribute.Int("order.lines", len(input.Lines)),
	)
	defer span.End()

	s.logInfo(ctx, "placing order", slog.String("user.id", input.UserID), slog.Int("lines", len(input.Lines)))
	result, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to place order", slog.String("user.id", input.UserID))
	}
	if result != nil && result.Entity != nil {
		s.metrics.recordPlaced(ctx, result.Entity.Status)
		s.logInfo(ctx, "order placed",
			slog.String("order.id", result.Entity.ID),
			slog.Int64("order.total_cents", result.Entity.TotalCents()),
		)
	}
	return result, nil
}

// GetByID loads a single order aggregate.
func (s *Service) GetByID(ctx context.Context, id string) (*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.GetByID", attribute.String("order.id", id))
	defer span.End()

	result, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id))
	}
	return result, nil
}

// Transition advances an order through its lifecycle.
func (s *Service) Transition(ctx context.Context, id string, next domain.Status) (*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.Transition",
		attribute.String("order.id", id),
		attribute.String("order.status.next", string(next)),
	)
	defer span.End()

	s.logInfo(ctx, "transitioning order", slog.String("order.id", id), slog.String("next", string(next)))
	result, err := s.inner.Transition(ctx, id, next)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to transition order", slog.String("order.id", id))
	}
	if result != nil && result.Entity != nil {
		s.metrics.recordTransitioned(ctx, result.Entity.Status)
		s.logInfo(ctx, "order transitioned", slog.String("order.id", id), slog.String("status", string(result.Entity.Status)))
	}
	return result, nil
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "Service.Delete", attribute.String("order.id", id))
	defer span.End()

	s.logInfo(ctx, "deleting order", slog.String("order.id", id))
	if err := s.inner.Delete(ctx, id); err != nil {
		return s.handleError(ctx, span, err, "failed to delete order", slog.String("order.id", id))
	}
	s.metrics.recordDeleted(ctx)
	s.logInfo(ctx, "order deleted", slog.String("order.id", id))
	return nil
}

// Query searches orders matching the filter.
func (s *Service) Query(ctx context.Context, filter ports.Filter) ([]*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.Query", attribute.String("order.filter.user_id", filter.UserID))
	defer span.End()

	result, err := s.inner.Query(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to query orders")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

// List exposes all orders for admin use cases.
func (s *Service) List(ctx context.Context) ([]*ordertypes.OrderProjection, error) {
	ctx, span := s.startSpan(ctx, "Service.List")
	defer span.End()

	result, err := s.inner.List(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersPlaced       metric.Int64Counter
	ordersTransitioned metric.Int64Counter
	ordersDeleted      metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("orders.service.placed", metric.WithDescription("Number of orders placed"))
	ordersTransitioned, _ := m.Int64Counter("orders.service.transitioned", metric.WithDescription("Number of order status transitions"))
	ordersDeleted, _ := m.Int64Counter("orders.service.deleted", metric.WithDescription("Number of orders deleted"))
	return serviceMetrics{
		ordersPlaced:       ordersPlaced,
		ordersTransitioned: ordersTransitioned,
		ordersDeleted:      ordersDeleted,
	}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, status domain.Status) {
	addCounter(ctx, m.ordersPlaced, 1, attribute.String("order.status", string(status)))
}

func (m serviceMetrics) recordTransitioned(ctx context.Context, status domain.Status) {
	addCounter(ctx, m.ordersTransitioned, 1, attribute.String("order.status", string(status)))
}

func (m serviceMetrics) recordDeleted(ctx context.Context) {
	addCounter(ctx, m.ordersDeleted, 1)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
