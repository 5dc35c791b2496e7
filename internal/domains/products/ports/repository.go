package ports

import (
	"context"
	"errors"

	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

var ErrNotFound = errors.New("product not found")

// ProductProjection pairs the aggregate with persistence metadata.
type ProductProjection = projection.Projection[*domain.Product]

// Filter narrows catalog queries. Zero-value fields are ignored.
type Filter struct {
	Statuses []domain.Status
	Tags     []string
}

// Repository persists product aggregates.
type Repository interface {
	Save(ctx context.Context, product *domain.Product) (*ProductProjection, error)
	GetByID(ctx context.Context, id string) (*ProductProjection, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter Filter) ([]*ProductProjection, error)
	List(ctx context.Context) ([]*ProductProjection, error)
}
