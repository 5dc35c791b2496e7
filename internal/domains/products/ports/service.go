package ports

import (
	"context"

	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
)

// Service exposes product bounded context use cases to adapters.
type Service interface {
	AddProduct(ctx context.Context, product *domain.Product) (*ProductProjection, error)
	GetByID(ctx context.Context, id string) (*ProductProjection, error)
	Update(ctx context.Context, id string, updated *domain.Product) (*ProductProjection, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter Filter) ([]*ProductProjection, error)
	AdjustStock(ctx context.Context, id string, delta int32) (*ProductProjection, error)
	List(ctx context.Context) ([]*ProductProjection, error)
}
