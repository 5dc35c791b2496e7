package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	orderactivities "github.com/erpmesh/erpmesh/internal/durable/temporal/activities/orders"
	ordertypes "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
)

// RunOrderPersistenceSequence executes the ordered set of activities needed to place an order.
func RunOrderPersistenceSequence(ctx workflow.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OrderProjection, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order persistence sequence started", "userId", input.UserID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var projection ordertypes.OrderProjection
	err := workflow.ExecuteActivity(ctx, orderactivities.PersistOrderActivityName, input).Get(ctx, &projection)
	if err != nil {
		logger.Error("order persistence sequence failed", "userId", input.UserID, "error", err)
		return nil, err
	}
	if projection.Entity != nil {
		logger.Info("order persistence sequence completed", "orderId", projection.Entity.ID)
	} else {
		logger.Info("order persistence sequence completed")
	}
	return &projection, nil
}
