package ports

import (
	"context"
	"errors"
)

var (
	// ErrUnknownUser indicates the referenced user does not exist or cannot order.
	ErrUnknownUser = errors.New("referenced user not found or inactive")
	// ErrUnknownProduct indicates the referenced product does not exist or is discontinued.
	ErrUnknownProduct = errors.New("referenced product not found or unavailable")
)

// UserDirectory resolves user references against the owning service.
// Cross-service reads happen through this port, never by touching another
// service's storage.
type UserDirectory interface {
	// CanOrder reports whether the user exists and may place orders.
	CanOrder(ctx context.Context, userID string) (bool, error)
}

// ProductCatalog resolves product references against the owning service.
type ProductCatalog interface {
	// UnitPrice returns the current price in cents for an orderable product,
	// or ErrUnknownProduct.
	UnitPrice(ctx context.Context, productID string) (int64, error)
}
