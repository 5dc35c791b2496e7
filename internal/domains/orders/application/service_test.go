package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	types "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
)

type fakeOrderRepo struct {
	orders map[string]*domain.Order
	nextID int
	saves  int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*domain.Order{}}
}

func (f *fakeOrderRepo) Save(_ context.Context, order *domain.Order) (*types.OrderProjection, error) {
	f.saves++
	clone := *order
	clone.Lines = append([]domain.Line(nil), order.Lines...)
	if clone.ID == "" {
		f.nextID++
		clone.ID = fmt.Sprintf("order-%d", f.nextID)
	}
	f.orders[clone.ID] = &clone
	return f.project(&clone), nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*types.OrderProjection, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return f.project(order), nil
}

func (f *fakeOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.orders[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) Query(_ context.Context, filter ports.Filter) ([]*types.OrderProjection, error) {
	var list []*types.OrderProjection
	for _, order := range f.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		list = append(list, f.project(order))
	}
	return list, nil
}

func (f *fakeOrderRepo) List(_ context.Context) ([]*types.OrderProjection, error) {
	return f.Query(context.Background(), ports.Filter{})
}

func (f *fakeOrderRepo) project(order *domain.Order) *types.OrderProjection {
	clone := *order
	clone.Lines = append([]domain.Line(nil), order.Lines...)
	return &types.OrderProjection{Entity: &clone}
}

type fakeDirectory struct {
	active map[string]bool
}

func (f *fakeDirectory) CanOrder(_ context.Context, userID string) (bool, error) {
	return f.active[userID], nil
}

type fakeCatalog struct {
	prices map[string]int64
}

func (f *fakeCatalog) UnitPrice(_ context.Context, productID string) (int64, error) {
	price, ok := f.prices[productID]
	if !ok {
		return 0, ports.ErrUnknownProduct
	}
	return price, nil
}

type fakeIdempotencyStore struct {
	records map[string]*ports.IdempotencyRecord
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: map[string]*ports.IdempotencyRecord{}}
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	if record, ok := f.records[key]; ok {
		clone := *record
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeIdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if existing, ok := f.records[record.Key]; ok {
		if existing.RequestHash != record.RequestHash || existing.OrderID != record.OrderID {
			clone := *existing
			return &clone, ports.ErrIdempotencyConflict
		}
		clone := *existing
		return &clone, nil
	}
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt
	f.records[record.Key] = &record
	clone := record
	return &clone, nil
}

func newOrderService(repo *fakeOrderRepo) *Service {
	directory := &fakeDirectory{active: map[string]bool{"user-1": true}}
	catalog := &fakeCatalog{prices: map[string]int64{"prod-1": 1299, "prod-2": 450}}
	store := newFakeIdempotencyStore()
	return NewService(repo, directory, catalog, store)
}

func TestPlaceOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newOrderService(repo)

	input := types.PlaceOrderInput{
		UserID: "user-1",
		Lines: []types.LineInput{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 1},
		},
	}
	placed, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	require.NotEmpty(t, placed.Entity.ID)
	require.Equal(t, domain.StatusPlaced, placed.Entity.Status)
	require.Equal(t, int64(1299), placed.Entity.Lines[0].UnitPriceCents)
	require.Equal(t, int64(2*1299+450), placed.Entity.TotalCents())
}

func TestPlaceOrder_UnknownUser(t *testing.T) {
	svc := newOrderService(newFakeOrderRepo())

	_, err := svc.PlaceOrder(context.Background(), types.PlaceOrderInput{
		UserID: "ghost",
		Lines:  []types.LineInput{{ProductID: "prod-1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ports.ErrUnknownUser)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	svc := newOrderService(newFakeOrderRepo())

	_, err := svc.PlaceOrder(context.Background(), types.PlaceOrderInput{
		UserID: "user-1",
		Lines:  []types.LineInput{{ProductID: "prod-404", Quantity: 1}},
	})
	require.ErrorIs(t, err, ports.ErrUnknownProduct)
}

func TestPlaceOrder_EmptyLines(t *testing.T) {
	svc := newOrderService(newFakeOrderRepo())

	_, err := svc.PlaceOrder(context.Background(), types.PlaceOrderInput{UserID: "user-1"})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrEmptyLines)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newOrderService(repo)

	input := types.PlaceOrderInput{
		IdempotencyKey: "retry-123",
		UserID:         "user-1",
		Lines:          []types.LineInput{{ProductID: "prod-1", Quantity: 1}},
	}
	first, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, first.Entity.ID, second.Entity.ID)
	require.Len(t, repo.orders, 1)
}

func TestPlaceOrder_IdempotencyConflict(t *testing.T) {
	svc := newOrderService(newFakeOrderRepo())

	first := types.PlaceOrderInput{
		IdempotencyKey: "retry-123",
		UserID:         "user-1",
		Lines:          []types.LineInput{{ProductID: "prod-1", Quantity: 1}},
	}
	_, err := svc.PlaceOrder(context.Background(), first)
	require.NoError(t, err)

	altered := first
	altered.Lines = []types.LineInput{{ProductID: "prod-2", Quantity: 5}}
	_, err = svc.PlaceOrder(context.Background(), altered)
	require.ErrorIs(t, err, ErrConflict)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
}

func TestTransition(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newOrderService(repo)

	placed, err := svc.PlaceOrder(context.Background(), types.PlaceOrderInput{
		UserID: "user-1",
		Lines:  []types.LineInput{{ProductID: "prod-1", Quantity: 1}},
	})
	require.NoError(t, err)

	approved, err := svc.Transition(context.Background(), placed.Entity.ID, domain.StatusApproved)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, approved.Entity.Status)

	_, err = svc.Transition(context.Background(), placed.Entity.ID, domain.StatusDelivered)
	require.ErrorIs(t, err, ErrConflict)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransition_NotFound(t *testing.T) {
	svc := newOrderService(newFakeOrderRepo())

	_, err := svc.Transition(context.Background(), "missing", domain.StatusApproved)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestFingerprintPlaceOrder_LineOrderIndependent(t *testing.T) {
	a := types.PlaceOrderInput{
		UserID: "user-1",
		Lines:  []types.LineInput{{ProductID: "prod-1", Quantity: 2}, {ProductID: "prod-2", Quantity: 1}},
	}
	b := types.PlaceOrderInput{
		UserID: "user-1",
		Lines:  []types.LineInput{{ProductID: "prod-2", Quantity: 1}, {ProductID: "prod-1", Quantity: 2}},
	}
	hashA, err := FingerprintPlaceOrder(a)
	require.NoError(t, err)
	hashB, err := FingerprintPlaceOrder(b)
	require.NoError(t, err)
	require.Equal(t, hashA, hashB)

	c := a
	c.Lines = []types.LineInput{{ProductID: "prod-1", Quantity: 3}}
	hashC, err := FingerprintPlaceOrder(c)
	require.NoError(t, err)
	require.NotEqual(t, hashA, hashC)
}
