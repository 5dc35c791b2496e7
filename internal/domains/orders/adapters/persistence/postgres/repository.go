package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM. Order lines are
// stored as a JSON column since they are only ever read through the
// aggregate, never queried individually.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	repo := &Repository{db: db}
	if db != nil {
		_ = db.AutoMigrate(&orderRecord{})
	}
	return repo
}

type lineRecord struct {
	ProductID      string `json:"product_id"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type orderRecord struct {
	ID        string       `gorm:"primaryKey;column:id;size:36"`
	UserID    string       `gorm:"column:user_id;size:36;index"`
	Lines     []lineRecord `gorm:"column:lines;type:jsonb;serializer:json"`
	Status    string       `gorm:"column:status;type:varchar(32);index"`
	PlacedAt  time.Time    `gorm:"column:placed_at"`
	CreatedAt time.Time    `gorm:"column:created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Save inserts or updates an order keyed by ID.
func (r *Repository) Save(ctx context.Context, order *domain.Order) (*types.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	clone := *order
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
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "lines", "status", "placed_at", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches an order by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*types.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

// Delete removes an order by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&orderRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Query returns orders matching the filter.
func (r *Repository) Query(ctx context.Context, filter ports.Filter) ([]*types.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	tx := r.db.WithContext(ctx)
	if filter.UserID != "" {
		tx = tx.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		tx = tx.Where("status IN ?", statuses)
	}
	var records []orderRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	projections := make([]*types.OrderProjection, 0, len(records))
	for i := range records {
		projections = append(projections, records[i].toProjection())
	}
	return projections, nil
}

// List returns all orders.
func (r *Repository) List(ctx context.Context) ([]*types.OrderProjection, error) {
	return r.Query(ctx, ports.Filter{})
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	record := orderRecord{
		ID:       order.ID,
		UserID:   order.UserID,
		Lines:    make([]lineRecord, 0, len(order.Lines)),
		Status:   string(order.Status),
		PlacedAt: order.PlacedAt,
	}
	for _, line := range order.Lines {
		record.Lines = append(record.Lines, lineRecord{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return record
}

func (rec orderRecord) toProjection() *types.OrderProjection {
	order := &domain.Order{
		ID:       rec.ID,
		UserID:   rec.UserID,
		Lines:    make([]domain.Line, 0, len(rec.Lines)),
		Status:   domain.Status(rec.Status),
		PlacedAt: rec.PlacedAt,
	}
	for _, line := range rec.Lines {
		order.Lines = append(order.Lines, domain.Line{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return &types.OrderProjection{
		Entity:   order,
		Metadata: projection.Metadata{CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt},
	}
}
