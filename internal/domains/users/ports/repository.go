package ports

import (
	"context"
	"errors"

	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
)

var ErrNotFound = errors.New("user not found")

// Filter narrows user queries. Zero-value fields are ignored.
type Filter struct {
	Statuses []domain.Status
	Email    string
}

// Repository persists user aggregates. Exactly one backing store is active
// at a time; callers depend on this interface only.
type Repository interface {
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter Filter) ([]*domain.User, error)
}
