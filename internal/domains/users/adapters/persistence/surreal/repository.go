// Package surreal persists user aggregates in SurrealDB.
package surreal

import (
	"context"
	"errors"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
	"github.com/erpmesh/erpmesh/internal/domains/users/ports"
)

var _ ports.Repository = (*Repository)(nil)

const userTable = "users"

// Repository persists users as SurrealDB documents.
type Repository struct {
	db *surrealdb.DB
}

// NewRepository wires a SurrealDB-backed repository. Caller manages the
// connection lifecycle.
func NewRepository(db *surrealdb.DB) *Repository {
	return &Repository{db: db}
}

type userRecord struct {
	ID        *models.RecordID       `json:"id,omitempty"`
	Email     string                 `json:"email"`
	FullName  string                 `json:"full_name"`
	Phone     string                 `json:"phone,omitempty"`
	Status    string                 `json:"status"`
	CreatedAt models.CustomDateTime  `json:"created_at,omitempty"`
	UpdatedAt *models.CustomDateTime `json:"updated_at,omitempty"`
}

// Save inserts or replaces a user document keyed by its ID.
func (r *Repository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user is nil")
	}
	clone := *user
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	now := models.CustomDateTime{Time: time.Now().UTC()}
	if clone.ID == "" {
		record := toRecord(&clone)
		record.CreatedAt = now
		created, err := surrealdb.Create[userRecord](ctx, r.db, userTable, record)
		if err != nil {
			return nil, err
		}
		return created.toDomain(), nil
	}
	record := toRecord(&clone)
	record.UpdatedAt = &now
	saved, err := surrealdb.Upsert[userRecord](ctx, r.db, models.NewRecordID(userTable, clone.ID), record)
	if err != nil {
		return nil, err
	}
	return saved.toDomain(), nil
}

// GetByID fetches a user document by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	record, err := surrealdb.Select[userRecord](ctx, r.db, models.NewRecordID(userTable, id))
	if err != nil {
		if isNotFound(err) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	if record == nil || record.ID == nil {
		return nil, ports.ErrNotFound
	}
	return record.toDomain(), nil
}

// Delete removes a user document.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := surrealdb.Delete[userRecord](ctx, r.db, models.NewRecordID(userTable, id))
	return err
}

// Query selects users matching the filter using a parameterized SurrealQL query.
func (r *Repository) Query(ctx context.Context, filter ports.Filter) ([]*domain.User, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + userTable
	conditions := []string{}
	vars := map[string]any{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		conditions = append(conditions, "status IN $statuses")
		vars["statuses"] = statuses
	}
	if filter.Email != "" {
		conditions = append(conditions, "email = $email")
		vars["email"] = filter.Email
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	results, err := surrealdb.Query[[]userRecord](ctx, r.db, query, vars)
	if err != nil {
		return nil, err
	}
	var users []*domain.User
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			users = append(users, (*results)[0].Result[i].toDomain())
		}
	}
	return users, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("surreal user repository not configured")
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "but got 0") || strings.Contains(msg, "no record found")
}

func toRecord(user *domain.User) userRecord {
	record := userRecord{
		Email:    user.Email,
		FullName: user.FullName,
		Phone:    user.Phone,
		Status:   string(user.Status),
	}
	if user.ID != "" {
		rid := models.NewRecordID(userTable, user.ID)
		record.ID = &rid
	}
	return record
}

func (r *userRecord) toDomain() *domain.User {
	user := &domain.User{
		Email:    r.Email,
		FullName: r.FullName,
		Phone:    r.Phone,
		Status:   domain.Status(r.Status),
	}
	if r.ID != nil {
		if id, ok := r.ID.ID.(string); ok {
			user.ID = id
		}
	}
	return user
}
