package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	ordertypes "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	orderports "github.com/erpmesh/erpmesh/internal/domains/orders/ports"
)

const (
	// PersistOrderActivityName places an order through the application service.
	PersistOrderActivityName = "orders.activities.PersistOrder"
)

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	placeService orderports.Service
}

// NewActivities wires the orders collaborators into the Temporal activities bundle.
func NewActivities(placeService orderports.Service) *Activities {
	return &Activities{placeService: placeService}
}

// PersistOrder places an order and returns its projection.
func (a *Activities) PersistOrder(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OrderProjection, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.placeService == nil {
		logger.Error("order persist activity not initialized", "userId", input.UserID)
		return nil, errors.New("order persist activity not initialized")
	}
	logger.Info("PersistOrder activity started", "userId", input.UserID, "lines", len(input.Lines))
	projection, err := a.placeService.PlaceOrder(ctx, input)
	if err != nil {
		logger.Error("PersistOrder activity failed", "userId", input.UserID, "error", err)
		return nil, err
	}
	if projection != nil && projection.Entity != nil {
		logger.Info("PersistOrder activity completed", "orderId", projection.Entity.ID)
	} else {
		logger.Info("PersistOrder activity completed")
	}
	return projection, nil
}
