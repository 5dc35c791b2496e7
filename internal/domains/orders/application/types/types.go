// Package types holds the serializable inputs and projections shared by the
// orders service, its ports, and the durable workflow layer.
package types

import (
	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/shared/projection"
)

// LineInput is one requested order line. Unit prices are resolved against
// the product catalog at placement time, never supplied by the caller.
type LineInput struct {
	ProductID string
	Quantity  int32
}

// PlaceOrderInput carries a placement command.
type PlaceOrderInput struct {
	// IdempotencyKey lets clients retry placement safely; optional.
	IdempotencyKey string
	UserID         string
	Lines          []LineInput
}

// OrderProjection pairs the aggregate with persistence metadata.
type OrderProjection = projection.Projection[*domain.Order]
