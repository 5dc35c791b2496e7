package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erpmesh/erpmesh/internal/domains/products/adapters/memory"
	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
	"github.com/erpmesh/erpmesh/internal/domains/products/ports"
)

// The suite runs against the in-memory adapter through the repository port
// only, so it holds for any backing store implementation.

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewRepository())
}

func mustAdd(t *testing.T, svc *Service, sku, name string, price int64) *ports.ProductProjection {
	t.Helper()
	product, err := domain.NewProduct(sku, name, price)
	require.NoError(t, err)
	saved, err := svc.AddProduct(context.Background(), product)
	require.NoError(t, err)
	return saved
}

func TestAddProduct(t *testing.T) {
	svc := newService(t)
	saved := mustAdd(t, svc, "SKU-1", "Anvil", 1999)
	require.NotEmpty(t, saved.Entity.ID)
	require.Equal(t, domain.StatusActive, saved.Entity.Status)
	require.False(t, saved.Metadata.CreatedAt.IsZero())
}

func TestAddProduct_InvalidPrice(t *testing.T) {
	svc := newService(t)
	_, err := svc.AddProduct(context.Background(), &domain.Product{SKU: "SKU-2", Name: "Free Anvil"})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestUpdate_KeepsID(t *testing.T) {
	svc := newService(t)
	saved := mustAdd(t, svc, "SKU-3", "Anvil", 1999)

	updated, err := domain.NewProduct("SKU-3", "Anvil Mk2", 2499)
	require.NoError(t, err)
	result, err := svc.Update(context.Background(), saved.Entity.ID, updated)
	require.NoError(t, err)
	require.Equal(t, saved.Entity.ID, result.Entity.ID)
	require.Equal(t, int64(2499), result.Entity.UnitPriceCents)
}

func TestAdjustStock(t *testing.T) {
	svc := newService(t)
	saved := mustAdd(t, svc, "SKU-4", "Anvil", 1999)

	result, err := svc.AdjustStock(context.Background(), saved.Entity.ID, 10)
	require.NoError(t, err)
	require.Equal(t, int32(10), result.Entity.StockLevel)

	result, err = svc.AdjustStock(context.Background(), saved.Entity.ID, -4)
	require.NoError(t, err)
	require.Equal(t, int32(6), result.Entity.StockLevel)

	_, err = svc.AdjustStock(context.Background(), saved.Entity.ID, -100)
	require.ErrorIs(t, err, ErrStockConflict)

	// The failed adjustment must not be persisted.
	current, err := svc.GetByID(context.Background(), saved.Entity.ID)
	require.NoError(t, err)
	require.Equal(t, int32(6), current.Entity.StockLevel)
}

func TestQuery_ByStatusAndTags(t *testing.T) {
	svc := newService(t)
	mustAdd(t, svc, "SKU-5", "Anvil", 1999)
	mustAdd(t, svc, "SKU-6", "Hammer", 999)

	tagged, err := domain.NewProduct("SKU-7", "Retired Anvil", 100)
	require.NoError(t, err)
	tagged.Tag("clearance")
	require.NoError(t, tagged.UpdateStatus(domain.StatusDiscontinued))
	_, err = svc.AddProduct(context.Background(), tagged)
	require.NoError(t, err)

	active, err := svc.Query(context.Background(), ports.Filter{Statuses: []domain.Status{domain.StatusActive}})
	require.NoError(t, err)
	require.Len(t, active, 2)

	clearance, err := svc.Query(context.Background(), ports.Filter{Tags: []string{"clearance"}})
	require.NoError(t, err)
	require.Len(t, clearance, 1)
	require.Equal(t, "SKU-7", clearance[0].Entity.SKU)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newService(t)
	_, err := svc.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ports.ErrNotFound)
}
