// Package references resolves cross-service identifier lookups for order
// placement. Resolution goes through the owning service's port, never its
// storage, so the orders context stays decoupled from other schemas.
package references

import (
	"context"
	"errors"
	"fmt"

	orderports "github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	productdomain "github.com/erpmesh/erpmesh/internal/domains/products/domain"
	productports "github.com/erpmesh/erpmesh/internal/domains/products/ports"
	userports "github.com/erpmesh/erpmesh/internal/domains/users/ports"
)

var (
	_ orderports.UserDirectory  = (*UserDirectory)(nil)
	_ orderports.ProductCatalog = (*ProductCatalog)(nil)
)

// UserDirectory answers order-placement user checks against the users service.
type UserDirectory struct {
	users userports.Service
}

func NewUserDirectory(users userports.Service) *UserDirectory {
	return &UserDirectory{users: users}
}

// CanOrder reports whether the user exists and is active.
func (d *UserDirectory) CanOrder(ctx context.Context, userID string) (bool, error) {
	if d == nil || d.users == nil {
		return false, errors.New("user directory not configured")
	}
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userports.ErrNotFound) {
			return false, fmt.Errorf("%w: %s", orderports.ErrUnknownUser, userID)
		}
		return false, err
	}
	return user.Active(), nil
}

// ProductCatalog answers price lookups against the products service.
type ProductCatalog struct {
	products productports.Service
}

func NewProductCatalog(products productports.Service) *ProductCatalog {
	return &ProductCatalog{products: products}
}

// UnitPrice returns the current catalog price for an orderable product.
// Discontinued products cannot be ordered.
func (c *ProductCatalog) UnitPrice(ctx context.Context, productID string) (int64, error) {
	if c == nil || c.products == nil {
		return 0, errors.New("product catalog not configured")
	}
	projection, err := c.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, productports.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", orderports.ErrUnknownProduct, productID)
		}
		return 0, err
	}
	if projection.Entity.Status != productdomain.StatusActive {
		return 0, fmt.Errorf("%w: %s is discontinued", orderports.ErrUnknownProduct, productID)
	}
	return projection.Entity.UnitPriceCents, nil
}
