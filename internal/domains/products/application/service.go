package application

import (
	"context"
	"errors"

	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
	"github.com/erpmesh/erpmesh/internal/domains/products/ports"
)

// Service orchestrates the products bounded context use cases.
type Service struct {
	repo ports.Repository
}

// NewService wires the products service with its dependencies.
func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

// AddProduct persists a new catalog entry.
func (s *Service) AddProduct(ctx context.Context, product *domain.Product) (*ports.ProductProjection, error) {
	if product == nil {
		return nil, errors.New("product is nil")
	}
	if err := product.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// GetByID loads a single product aggregate.
func (s *Service) GetByID(ctx context.Context, id string) (*ports.ProductProjection, error) {
	projection, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return projection, nil
}

// Update overrides an existing product with new state.
func (s *Service) Update(ctx context.Context, id string, updated *domain.Product) (*ports.ProductProjection, error) {
	if updated == nil {
		return nil, errors.New("product is nil")
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	updated.ID = existing.Entity.ID
	if err := updated.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, updated)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}

// Query searches products matching any of the provided statuses and tags.
func (s *Service) Query(ctx context.Context, filter ports.Filter) ([]*ports.ProductProjection, error) {
	result, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// AdjustStock applies a stock delta and persists the result.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int32) (*ports.ProductProjection, error) {
	projection, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if err := projection.Entity.AdjustStock(delta); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, projection.Entity)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// List exposes the full catalog for admin use cases.
func (s *Service) List(ctx context.Context) ([]*ports.ProductProjection, error) {
	result, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

var _ ports.Service = (*Service)(nil)
