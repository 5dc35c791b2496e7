package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
	"github.com/erpmesh/erpmesh/internal/domains/users/ports"
)

type fakeUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	clone := *user
	if clone.ID == "" {
		f.nextID++
		clone.ID = string(rune('a' + f.nextID))
	}
	f.users[clone.ID] = &clone
	saved := clone
	return &saved, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ports.ErrNotFound
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) Query(_ context.Context, filter ports.Filter) ([]*domain.User, error) {
	var list []*domain.User
	for _, u := range f.users {
		if filter.Email != "" && u.Email != filter.Email {
			continue
		}
		clone := *u
		list = append(list, &clone)
	}
	return list, nil
}

func TestCreateUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	user, err := domain.NewUser("alice@example.com", "Alice Cooper")
	require.NoError(t, err)
	created, err := svc.CreateUser(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "alice@example.com", created.Email)
	require.Equal(t, domain.StatusActive, created.Status)
}

func TestCreateUser_InvalidEmail(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	_, err := svc.CreateUser(context.Background(), &domain.User{Email: "not-an-email", FullName: "Bob"})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestUpdate_PreservesIdentity(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	user, err := domain.NewUser("carol@example.com", "Carol")
	require.NoError(t, err)
	created, err := svc.CreateUser(context.Background(), user)
	require.NoError(t, err)

	updated, err := domain.NewUser("carol@example.org", "Carol Danvers")
	require.NoError(t, err)
	saved, err := svc.Update(context.Background(), created.ID, updated)
	require.NoError(t, err)
	require.Equal(t, created.ID, saved.ID)
	require.Equal(t, "carol@example.org", saved.Email)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	updated, err := domain.NewUser("dave@example.com", "Dave")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), "missing", updated)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	user, err := domain.NewUser("erin@example.com", "Erin")
	require.NoError(t, err)
	created, err := svc.CreateUser(context.Background(), user)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), ports.ErrNotFound)
}

func TestQuery_FiltersByEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		user, err := domain.NewUser(email, "Someone")
		require.NoError(t, err)
		_, err = svc.CreateUser(context.Background(), user)
		require.NoError(t, err)
	}

	result, err := svc.Query(context.Background(), ports.Filter{Email: "a@example.com"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "a@example.com", result[0].Email)
}
