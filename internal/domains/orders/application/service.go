package application

import (
	"context"
	"fmt"
	"strings"

	types "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
)

// Service orchestrates the orders bounded context use cases.
type Service struct {
	repo        ports.Repository
	users       ports.UserDirectory
	catalog     ports.ProductCatalog
	idempotency ports.IdempotencyStore
}

// NewService wires the orders service with its dependencies. The idempotency
// store may be nil, in which case placement keys are ignored.
func NewService(repo ports.Repository, users ports.UserDirectory, catalog ports.ProductCatalog, idempotency ports.IdempotencyStore) *Service {
	return &Service{repo: repo, users: users, catalog: catalog, idempotency: idempotency}
}

// PlaceOrder resolves the user and product references, snapshots unit prices
// and persists a new order. With an idempotency key, retries of the same
// payload replay the original order.
func (s *Service) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.OrderProjection, error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	var requestHash string
	if key != "" && s.idempotency != nil {
		hash, err := FingerprintPlaceOrder(input)
		if err != nil {
			return nil, fmt.Errorf("fingerprint placement: %w", err)
		}
		requestHash = hash
		existing, err := s.idempotency.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.RequestHash != requestHash {
				return nil, mapError(ports.ErrIdempotencyConflict)
			}
			projection, err := s.repo.GetByID(ctx, existing.OrderID)
			if err != nil {
				return nil, mapError(err)
			}
			return projection, nil
		}
	}

	order, err := s.buildOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, mapError(err)
	}
	if key != "" && s.idempotency != nil {
		record := ports.IdempotencyRecord{Key: key, RequestHash: requestHash, OrderID: saved.Entity.ID}
		if _, err := s.idempotency.Save(ctx, record); err != nil {
			return nil, mapError(err)
		}
	}
	return saved, nil
}

// GetByID loads a single order aggregate.
func (s *Service) GetByID(ctx context.Context, id string) (*types.OrderProjection, error) {
	projection, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return projection, nil
}

// Transition advances an order through its lifecycle and persists the result.
func (s *Service) Transition(ctx context.Context, id string, next domain.Status) (*types.OrderProjection, error) {
	projection, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if err := projection.Entity.Transition(next); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, projection.Entity)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}

// Query searches orders matching the filter.
func (s *Service) Query(ctx context.Context, filter ports.Filter) ([]*types.OrderProjection, error) {
	result, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// List exposes all orders for admin use cases.
func (s *Service) List(ctx context.Context) ([]*types.OrderProjection, error) {
	result, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (s *Service) buildOrder(ctx context.Context, input types.PlaceOrderInput) (*domain.Order, error) {
	if s.users != nil {
		ok, err := s.users.CanOrder(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ports.ErrUnknownUser
		}
	}
	lines := make([]domain.Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		price := int64(0)
		if s.catalog != nil {
			resolved, err := s.catalog.UnitPrice(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			price = resolved
		}
		lines = append(lines, domain.Line{ProductID: line.ProductID, Quantity: line.Quantity, UnitPriceCents: price})
	}
	order, err := domain.NewOrder(input.UserID, lines)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}
