package ports

import (
	"context"
	"errors"

	"github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
)

var ErrNotFound = errors.New("order not found")

// Filter narrows order queries. Zero-value fields are ignored.
type Filter struct {
	UserID   string
	Statuses []domain.Status
}

// Repository persists order aggregates.
type Repository interface {
	Save(ctx context.Context, order *domain.Order) (*types.OrderProjection, error)
	GetByID(ctx context.Context, id string) (*types.OrderProjection, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter Filter) ([]*types.OrderProjection, error)
	List(ctx context.Context) ([]*types.OrderProjection, error)
}
