package orders

import (
	"go.temporal.io/sdk/workflow"

	ordertypes "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/durable/temporal/sequences"
)

const (
	// OrderFulfillmentWorkflowName is the public identifier for registering the workflow.
	OrderFulfillmentWorkflowName = "orders.workflows.Fulfillment"
	// OrderFulfillmentTaskQueue is the queue consumed by the worker processing order workflows.
	OrderFulfillmentTaskQueue = "ORDER_FULFILLMENT"
)

// OrderFulfillmentWorkflowInput captures the payload required to place a new order.
type OrderFulfillmentWorkflowInput struct {
	Command ordertypes.PlaceOrderInput
	TraceID string
}

// OrderFulfillmentWorkflow orchestrates the activities needed to place an order aggregate.
func OrderFulfillmentWorkflow(ctx workflow.Context, input OrderFulfillmentWorkflowInput) (*ordertypes.OrderProjection, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("OrderFulfillmentWorkflow started", withTraceID(input.TraceID, "userId", input.Command.UserID)...)
	projection, err := sequences.RunOrderPersistenceSequence(ctx, input.Command)
	if err != nil {
		logger.Error("OrderFulfillmentWorkflow failed", withTraceID(input.TraceID, "userId", input.Command.UserID, "error", err)...)
		return nil, err
	}
	if projection != nil && projection.Entity != nil {
		logger.Info("OrderFulfillmentWorkflow completed", withTraceID(input.TraceID, "orderId", projection.Entity.ID)...)
	} else {
		logger.Info("OrderFulfillmentWorkflow completed", withTraceID(input.TraceID)...)
	}
	return projection, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
