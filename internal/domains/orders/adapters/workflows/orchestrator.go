package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	ordertypes "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	orderworkflows "github.com/erpmesh/erpmesh/internal/durable/temporal/workflows/orders"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOrderWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOrderWorkflows)(nil)
)

// TemporalOrderWorkflows starts order workflows on a Temporal cluster.
type TemporalOrderWorkflows struct {
	client    client.Client
	taskQueue string
}

// NewTemporalOrderWorkflows wires a Temporal client into the orchestrator.
func NewTemporalOrderWorkflows(c client.Client) *TemporalOrderWorkflows {
	return &TemporalOrderWorkflows{client: c, taskQueue: orderworkflows.OrderFulfillmentTaskQueue}
}

// PlaceOrder starts the Temporal workflow that places an order aggregate.
func (o *TemporalOrderWorkflows) PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OrderProjection, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal order workflows not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildFulfillmentWorkflowID(input, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.OrderFulfillmentWorkflow,
		orderworkflows.OrderFulfillmentWorkflowInput{Command: input, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) && strings.TrimSpace(input.IdempotencyKey) != "" {
			existingRun := o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
			var projection ordertypes.OrderProjection
			if err := existingRun.Get(ctx, &projection); err != nil {
				return nil, err
			}
			return &projection, nil
		}
		return nil, err
	}
	var projection ordertypes.OrderProjection
	if err := run.Get(ctx, &projection); err != nil {
		return nil, err
	}
	return &projection, nil
}

// InlineOrderWorkflows executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineOrderWorkflows struct {
	service ports.Service
}

// NewInlineOrderWorkflows wraps the orders service for synchronous execution.
func NewInlineOrderWorkflows(service ports.Service) *InlineOrderWorkflows {
	return &InlineOrderWorkflows{service: service}
}

// PlaceOrder delegates to the application service without durable orchestration.
func (o *InlineOrderWorkflows) PlaceOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OrderProjection, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order workflows not configured")
	}
	return o.service.PlaceOrder(ctx, input)
}

func buildFulfillmentWorkflowID(input ordertypes.PlaceOrderInput, traceComponent string) string {
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		return fmt.Sprintf("order-fulfillment-idem-%s", hashIdempotencyKey(key))
	}
	return fmt.Sprintf("order-fulfillment-%d-%s", time.Now().UnixNano(), traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	// Use the first 16 hex chars to keep workflow IDs readable while remaining deterministic.
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	traceComponent := workflowTraceID(ctx)
	if traceComponent != "" {
		return traceComponent
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	traceID := spanCtx.TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
