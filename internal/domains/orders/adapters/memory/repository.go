package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

type entry struct {
	order    *domain.Order
	metadata projection.Metadata
}

// Repository is an in-memory order persistence adapter.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]entry
	now    func() time.Time
}

func NewRepository() *Repository {
	return &Repository{orders: map[string]entry{}, now: time.Now}
}

func (r *Repository) Save(_ context.Context, order *domain.Order) (*types.OrderProjection, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	clone := cloneOrder(order)
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	metadata := projection.Metadata{CreatedAt: now, UpdatedAt: now}
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	} else if existing, ok := r.orders[clone.ID]; ok {
		metadata.CreatedAt = existing.metadata.CreatedAt
	}
	r.orders[clone.ID] = entry{order: clone, metadata: metadata}
	return &types.OrderProjection{Entity: cloneOrder(clone), Metadata: metadata}, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*types.OrderProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &types.OrderProjection{Entity: cloneOrder(stored.order), Metadata: stored.metadata}, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *Repository) Query(_ context.Context, filter ports.Filter) ([]*types.OrderProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*types.OrderProjection
	for _, stored := range r.orders {
		if !matches(stored.order, filter) {
			continue
		}
		list = append(list, &types.OrderProjection{Entity: cloneOrder(stored.order), Metadata: stored.metadata})
	}
	return list, nil
}

func (r *Repository) List(ctx context.Context) ([]*types.OrderProjection, error) {
	return r.Query(ctx, ports.Filter{})
}

func matches(order *domain.Order, filter ports.Filter) bool {
	if filter.UserID != "" && order.UserID != filter.UserID {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, status := range filter.Statuses {
		if order.Status == status {
			return true
		}
	}
	return false
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Lines = append([]domain.Line(nil), order.Lines...)
	return &clone
}
