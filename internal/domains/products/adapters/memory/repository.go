package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
	"github.com/erpmesh/erpmesh/internal/domains/products/ports"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

type entry struct {
	product  *domain.Product
	metadata projection.Metadata
}

// Repository is an in-memory product persistence adapter.
type Repository struct {
	mu       sync.RWMutex
	products map[string]entry
	now      func() time.Time
}

func NewRepository() *Repository {
	return &Repository{products: map[string]entry{}, now: time.Now}
}

func (r *Repository) Save(_ context.Context, product *domain.Product) (*ports.ProductProjection, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	clone := cloneProduct(product)
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	metadata := projection.Metadata{CreatedAt: now, UpdatedAt: now}
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	} else if existing, ok := r.products[clone.ID]; ok {
		metadata.CreatedAt = existing.metadata.CreatedAt
	}
	r.products[clone.ID] = entry{product: clone, metadata: metadata}
	return &ports.ProductProjection{Entity: cloneProduct(clone), Metadata: metadata}, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*ports.ProductProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &ports.ProductProjection{Entity: cloneProduct(stored.product), Metadata: stored.metadata}, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *Repository) Query(_ context.Context, filter ports.Filter) ([]*ports.ProductProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*ports.ProductProjection
	for _, stored := range r.products {
		if !matchesStatus(stored.product, filter.Statuses) || !matchesTags(stored.product, filter.Tags) {
			continue
		}
		list = append(list, &ports.ProductProjection{Entity: cloneProduct(stored.product), Metadata: stored.metadata})
	}
	return list, nil
}

func (r *Repository) List(ctx context.Context) ([]*ports.ProductProjection, error) {
	return r.Query(ctx, ports.Filter{})
}

func matchesStatus(product *domain.Product, statuses []domain.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, status := range statuses {
		if product.Status == status {
			return true
		}
	}
	return false
}

func matchesTags(product *domain.Product, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range product.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

func cloneProduct(product *domain.Product) *domain.Product {
	clone := *product
	clone.Tags = append([]string(nil), product.Tags...)
	return &clone
}
