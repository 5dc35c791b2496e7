package ports

import (
	"context"

	"github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
)

// Service exposes order bounded context use cases to adapters.
type Service interface {
	PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.OrderProjection, error)
	GetByID(ctx context.Context, id string) (*types.OrderProjection, error)
	Transition(ctx context.Context, id string, next domain.Status) (*types.OrderProjection, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter Filter) ([]*types.OrderProjection, error)
	List(ctx context.Context) ([]*types.OrderProjection, error)
}

// WorkflowOrchestrator exposes durable workflow operations required by the
// orders bounded context.
type WorkflowOrchestrator interface {
	PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.OrderProjection, error)
}
