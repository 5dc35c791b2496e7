package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erpmesh/erpmesh/internal/domains/users/domain"
	"github.com/erpmesh/erpmesh/internal/domains/users/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists users in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	repo := &Repository{db: db}
	if db != nil {
		_ = db.AutoMigrate(&userRecord{})
	}
	return repo
}

type userRecord struct {
	ID        string    `gorm:"primaryKey;column:id;size:36"`
	Email     string    `gorm:"column:email;uniqueIndex"`
	FullName  string    `gorm:"column:full_name"`
	Phone     string    `gorm:"column:phone"`
	Status    string    `gorm:"column:status;type:varchar(32);index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

// Save inserts or updates a user keyed by ID.
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
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	record := toRecord(&clone)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "phone", "status", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches a user by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record userRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// Delete removes a user by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&userRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Query returns users matching the filter.
func (r *Repository) Query(ctx context.Context, filter ports.Filter) ([]*domain.User, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	tx := r.db.WithContext(ctx)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		tx = tx.Where("status IN ?", statuses)
	}
	if filter.Email != "" {
		tx = tx.Where("email = ?", filter.Email)
	}
	var records []userRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	users := make([]*domain.User, 0, len(records))
	for i := range records {
		users = append(users, records[i].toDomain())
	}
	return users, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres user repository not configured")
	}
	return nil
}

func toRecord(user *domain.User) userRecord {
	return userRecord{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Phone:    user.Phone,
		Status:   string(user.Status),
	}
}

func (r userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:       r.ID,
		Email:    r.Email,
		FullName: r.FullName,
		Phone:    r.Phone,
		Status:   domain.Status(r.Status),
	}
}
