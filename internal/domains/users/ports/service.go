package ports

import (
	"context"

	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
)

// Service exposes user bounded context use cases to adapters.
type Service interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, updated *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter Filter) ([]*domain.User, error)
}
