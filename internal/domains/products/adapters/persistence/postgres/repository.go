package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
	"github.com/erpmesh/erpmesh/internal/domains/products/ports"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists products in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	repo := &Repository{db: db}
	if db != nil {
		_ = db.AutoMigrate(&productRecord{})
	}
	return repo
}

type productRecord struct {
	ID             string         `gorm:"primaryKey;column:id;size:36"`
	SKU            string         `gorm:"column:sku;uniqueIndex"`
	Name           string         `gorm:"column:name"`
	Description    string         `gorm:"column:description"`
	UnitPriceCents int64          `gorm:"column:unit_price_cents"`
	Tags           pq.StringArray `gorm:"column:tags;type:text[]"`
	Status         string         `gorm:"column:status;type:varchar(32);index"`
	StockLevel     int32          `gorm:"column:stock_level"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// Save inserts or updates a product keyed by ID.
func (r *Repository) Save(ctx context.Context, product *domain.Product) (*ports.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("product is nil")
	}
	clone := *product
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
			DoUpdates: clause.AssignmentColumns([]string{"sku", "name", "description", "unit_price_cents", "tags", "status", "stock_level", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches a product by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*ports.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

// Delete removes a product by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&productRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Query returns products matching the filter. Tag matching uses the
// PostgreSQL array overlap operator.
func (r *Repository) Query(ctx context.Context, filter ports.Filter) ([]*ports.ProductProjection, error) {
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
	if len(filter.Tags) > 0 {
		tx = tx.Where("tags && ?", pq.StringArray(filter.Tags))
	}
	var records []productRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	projections := make([]*ports.ProductProjection, 0, len(records))
	for i := range records {
		projections = append(projections, records[i].toProjection())
	}
	return projections, nil
}

// List returns the full catalog.
func (r *Repository) List(ctx context.Context) ([]*ports.ProductProjection, error) {
	return r.Query(ctx, ports.Filter{})
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres product repository not configured")
	}
	return nil
}

func toRecord(product *domain.Product) productRecord {
	return productRecord{
		ID:             product.ID,
		SKU:            product.SKU,
		Name:           product.Name,
		Description:    product.Description,
		UnitPriceCents: product.UnitPriceCents,
		Tags:           pq.StringArray(product.Tags),
		Status:         string(product.Status),
		StockLevel:     product.StockLevel,
	}
}

func (rec productRecord) toProjection() *ports.ProductProjection {
	return &ports.ProductProjection{
		Entity: &domain.Product{
			ID:             rec.ID,
			SKU:            rec.SKU,
			Name:           rec.Name,
			Description:    rec.Description,
			UnitPriceCents: rec.UnitPriceCents,
			Tags:           append([]string(nil), rec.Tags...),
			Status:         domain.Status(rec.Status),
			StockLevel:     rec.StockLevel,
		},
		Metadata: projection.Metadata{CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt},
	}
}
