//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	"github.com/erpmesh/erpmesh/internal/platform/migrations"
)

func setupOrdersPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("erpmesh_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func TestRepository_SaveAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	order, err := domain.NewOrder("user-1", []domain.Line{
		{ProductID: "prod-1", Quantity: 2, UnitPriceCents: 1299},
		{ProductID: "prod-2", Quantity: 1, UnitPriceCents: 450},
	})
	require.NoError(t, err)

	saved, err := repo.Save(ctx, order)
	require.NoError(t, err)
	require.NotEmpty(t, saved.Entity.ID)
	assert.Equal(t, domain.StatusPlaced, saved.Entity.Status)

	fetched, err := repo.GetByID(ctx, saved.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Entity.ID, fetched.Entity.ID)
	assert.Len(t, fetched.Entity.Lines, 2)
	assert.Equal(t, int64(2*1299+450), fetched.Entity.TotalCents())
}

func TestRepository_TransitionRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	order, err := domain.NewOrder("user-1", []domain.Line{{ProductID: "prod-1", Quantity: 1, UnitPriceCents: 100}})
	require.NoError(t, err)
	saved, err := repo.Save(ctx, order)
	require.NoError(t, err)

	require.NoError(t, saved.Entity.Transition(domain.StatusApproved))
	updated, err := repo.Save(ctx, saved.Entity)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Entity.Status)

	fetched, err := repo.GetByID(ctx, saved.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, fetched.Entity.Status)
}

func TestRepository_QueryByUserAndStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-1", "user-2"} {
		order, err := domain.NewOrder(userID, []domain.Line{{ProductID: "prod-1", Quantity: 1, UnitPriceCents: 100}})
		require.NoError(t, err)
		_, err = repo.Save(ctx, order)
		require.NoError(t, err)
	}

	byUser, err := repo.Query(ctx, ports.Filter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byStatus, err := repo.Query(ctx, ports.Filter{Statuses: []domain.Status{domain.StatusPlaced}})
	require.NoError(t, err)
	assert.Len(t, byStatus, 3)

	none, err := repo.Query(ctx, ports.Filter{Statuses: []domain.Status{domain.StatusShipped}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIdempotencyStore_SaveAndConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	store := NewIdempotencyStore(db)
	ctx := context.Background()

	record := ports.IdempotencyRecord{Key: "retry-1", RequestHash: "hash-a", OrderID: "order-1", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	saved, err := store.Save(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "order-1", saved.OrderID)

	replay, err := store.Save(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, saved.OrderID, replay.OrderID)

	conflicting := record
	conflicting.RequestHash = "hash-b"
	existing, err := store.Save(ctx, conflicting)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	assert.Equal(t, "hash-a", existing.RequestHash)

	missing, err := store.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
