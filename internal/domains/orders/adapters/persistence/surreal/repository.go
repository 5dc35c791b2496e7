// Package surreal persists order aggregates in SurrealDB.
package surreal

import (
	"context"
	"errors"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	types "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

const orderTable = "orders"

// Repository persists orders as SurrealDB documents. Lines are embedded in
// the order document; user and product references stay plain identifiers.
type Repository struct {
	db *surrealdb.DB
}

func NewRepository(db *surrealdb.DB) *Repository {
	return &Repository{db: db}
}

type lineRecord struct {
	ProductID      string `json:"product_id"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type orderRecord struct {
	ID        *models.RecordID       `json:"id,omitempty"`
	UserID    string                 `json:"user_id"`
	Lines     []lineRecord           `json:"lines"`
	Status    string                 `json:"status"`
	PlacedAt  models.CustomDateTime  `json:"placed_at"`
	CreatedAt models.CustomDateTime  `json:"created_at,omitempty"`
	UpdatedAt *models.CustomDateTime `json:"updated_at,omitempty"`
}

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
	now := models.CustomDateTime{Time: time.Now().UTC()}
	record := toRecord(&clone)
	if clone.ID == "" {
		record.CreatedAt = now
		created, err := surrealdb.Create[orderRecord](ctx, r.db, orderTable, record)
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
	saved, err := surrealdb.Upsert[orderRecord](ctx, r.db, models.NewRecordID(orderTable, clone.ID), record)
	if err != nil {
		return nil, err
	}
	return saved.toProjection(), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*types.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	record, err := surrealdb.Select[orderRecord](ctx, r.db, models.NewRecordID(orderTable, id))
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
	_, err := surrealdb.Delete[orderRecord](ctx, r.db, models.NewRecordID(orderTable, id))
	return err
}

func (r *Repository) Query(ctx context.Context, filter ports.Filter) ([]*types.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + orderTable
	conditions := []string{}
	vars := map[string]any{}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = $user_id")
		vars["user_id"] = filter.UserID
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		conditions = append(conditions, "status IN $statuses")
		vars["statuses"] = statuses
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	results, err := surrealdb.Query[[]orderRecord](ctx, r.db, query, vars)
	if err != nil {
		return nil, err
	}
	var projections []*types.OrderProjection
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			projections = append(projections, (*results)[0].Result[i].toProjection())
		}
	}
	return projections, nil
}

func (r *Repository) List(ctx context.Context) ([]*types.OrderProjection, error) {
	return r.Query(ctx, ports.Filter{})
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("surreal order repository not configured")
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

func toRecord(order *domain.Order) orderRecord {
	record := orderRecord{
		UserID:   order.UserID,
		Lines:    make([]lineRecord, 0, len(order.Lines)),
		Status:   string(order.Status),
		PlacedAt: models.CustomDateTime{Time: order.PlacedAt},
	}
	for _, line := range order.Lines {
		record.Lines = append(record.Lines, lineRecord{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	if order.ID != "" {
		rid := models.NewRecordID(orderTable, order.ID)
		record.ID = &rid
	}
	return record
}

func (rec *orderRecord) toProjection() *types.OrderProjection {
	order := &domain.Order{
		UserID:   rec.UserID,
		Lines:    make([]domain.Line, 0, len(rec.Lines)),
		Status:   domain.Status(rec.Status),
		PlacedAt: rec.PlacedAt.Time,
	}
	for _, line := range rec.Lines {
		order.Lines = append(order.Lines, domain.Line{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	if rec.ID != nil {
		if id, ok := rec.ID.ID.(string); ok {
			order.ID = id
		}
	}
	metadata := projection.Metadata{CreatedAt: rec.CreatedAt.Time}
	if rec.UpdatedAt != nil {
		metadata.UpdatedAt = rec.UpdatedAt.Time
	} else {
		metadata.UpdatedAt = rec.CreatedAt.Time
	}
	return &types.OrderProjection{Entity: order, Metadata: metadata}
}
