package application

import (
	"context"
	"errors"

	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
	"github.com/erpmesh/erpmesh/internal/domains/users/ports"
)

// Service exposes user bounded context use cases.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if err := user.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func (s *Service) Update(ctx context.Context, id string, updated *domain.User) (*domain.User, error) {
	if updated == nil {
		return nil, errors.New("user is nil")
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	updated.ID = existing.ID
	if err := updated.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, updated)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Service) Query(ctx context.Context, filter ports.Filter) ([]*domain.User, error) {
	users, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

var _ ports.Service = (*Service)(nil)
