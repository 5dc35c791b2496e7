// Package surreal persists product aggregates in SurrealDB.
package surreal

import (
	"context"
	"errors"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
	"github.com/erpmesh/erpmesh/internal/domains/products/ports"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

const productTable = "products"

// Repository persists products as SurrealDB documents.
type Repository struct {
	db *surrealdb.DB
}

func NewRepository(db *surrealdb.DB) *Repository {
	return &Repository{db: db}
}

type productRecord struct {
	ID             *models.RecordID       `json:"id,omitempty"`
	SKU            string                 `json:"sku"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	UnitPriceCents int64                  `json:"unit_price_cents"`
	Tags           []string               `json:"tags,omitempty"`
	Status         string                 `json:"status"`
	StockLevel     int32                  `json:"stock_level"`
	CreatedAt      models.CustomDateTime  `json:"created_at,omitempty"`
	UpdatedAt      *models.CustomDateTime `json:"updated_at,omitempty"`
}

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
	now := models.CustomDateTime{Time: time.Now().UTC()}
	record := toRecord(&clone)
	if clone.ID == "" {
		record.CreatedAt = now
		created, err := surrealdb.Create[productRecord](ctx, r.db, productTable, record)
		if err != nil {
			return nil, err
		}
		return created.toProjection(), nil
	}
	existing, err := r.GetByID(ctx, clone.ID)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		record.CreatedAt = models.CustomDateTime{Time: existing.Metadata.CreatedAt}
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = &now
	saved, err := surrealdb.Upsert[productRecord](ctx, r.db, models.NewRecordID(productTable, clone.ID), record)
	if err != nil {
		return nil, err
	}
	return saved.toProjection(), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*ports.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	record, err := surrealdb.Select[productRecord](ctx, r.db, models.NewRecordID(productTable, id))
	if err != nil {
		if isNotFound(err) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	if record == nil || record.ID == nil {
		return nil, ports.ErrNotFound
	}
	return record.toProjection(), nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := surrealdb.Delete[productRecord](ctx, r.db, models.NewRecordID(productTable, id))
	return err
}

func (r *Repository) Query(ctx context.Context, filter ports.Filter) ([]*ports.ProductProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + productTable
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
	if len(filter.Tags) > 0 {
		conditions = append(conditions, "tags CONTAINSANY $tags")
		vars["tags"] = filter.Tags
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	results, err := surrealdb.Query[[]productRecord](ctx, r.db, query, vars)
	if err != nil {
		return nil, err
	}
	var projections []*ports.ProductProjection
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			projections = append(projections, (*results)[0].Result[i].toProjection())
		}
	}
	return projections, nil
}

func (r *Repository) List(ctx context.Context) ([]*ports.ProductProjection, error) {
	return r.Query(ctx, ports.Filter{})
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("surreal product repository not configured")
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

func toRecord(product *domain.Product) productRecord {
	record := productRecord{
		SKU:            product.SKU,
		Name:           product.Name,
		Description:    product.Description,
		UnitPriceCents: product.UnitPriceCents,
		Tags:           append([]string(nil), product.Tags...),
		Status:         string(product.Status),
		StockLevel:     product.StockLevel,
	}
	if product.ID != "" {
		rid := models.NewRecordID(productTable, product.ID)
		record.ID = &rid
	}
	return record
}

func (rec *productRecord) toProjection() *ports.ProductProjection {
	product := &domain.Product{
		SKU:            rec.SKU,
		Name:           rec.Name,
		Description:    rec.Description,
		UnitPriceCents: rec.UnitPriceCents,
		Tags:           append([]string(nil), rec.Tags...),
		Status:         domain.Status(rec.Status),
		StockLevel:     rec.StockLevel,
	}
	if rec.ID != nil {
		if id, ok := rec.ID.ID.(string); ok {
			product.ID = id
		}
	}
	metadata := projection.Metadata{CreatedAt: rec.CreatedAt.Time}
	if rec.UpdatedAt != nil {
		metadata.UpdatedAt = rec.UpdatedAt.Time
	} else {
		metadata.UpdatedAt = rec.CreatedAt.Time
	}
	return &ports.ProductProjection{Entity: product, Metadata: metadata}
}
