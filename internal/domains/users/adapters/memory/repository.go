package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
	"github.com/erpmesh/erpmesh/internal/domains/users/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory user persistence adapter.
type Repository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewRepository() *Repository {
	return &Repository{users: map[string]*domain.User{}}
}

func (r *Repository) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	clone := *user
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	r.users[clone.ID] = &clone
	saved := clone
	return &saved, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *Repository) Query(_ context.Context, filter ports.Filter) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.User, 0, len(r.users))
	for _, user := range r.users {
		if !matches(user, filter) {
			continue
		}
		clone := *user
		list = append(list, &clone)
	}
	return list, nil
}

func matches(user *domain.User, filter ports.Filter) bool {
	if filter.Email != "" && user.Email != filter.Email {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, status := range filter.Statuses {
		if user.Status == status {
			return true
		}
	}
	return false
}
