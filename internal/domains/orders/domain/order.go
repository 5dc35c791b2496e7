package domain

import (
	"errors"
	"strings"
	"time"
)

// Status enumerates order progression.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusApproved  Status = "approved"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	ErrEmptyUserRef      = errors.New("user reference is required")
	ErrEmptyLines        = errors.New("order requires at least one line")
	ErrEmptyProductRef   = errors.New("product reference is required")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidStatus     = errors.New("order status is invalid")
	ErrInvalidTransition = errors.New("order status transition is not allowed")
)

// Line references a catalog product by identifier. The unit price is the
// amount agreed at placement time, a transactional fact that does not track
// later catalog changes. No other product or user state is ever embedded.
type Line struct {
	ProductID      string
	Quantity       int32
	UnitPriceCents int64
}

// Order models the purchase order aggregate. It holds identifier references
// to the owning user and the ordered products, never copies of their records.
type Order struct {
	ID       string
	UserID   string
	Lines    []Line
	Status   Status
	PlacedAt time.Time
}

// NewOrder validates and constructs a new Order aggregate in the placed state.
func NewOrder(userID string, lines []Line) (*Order, error) {
	order := &Order{
		UserID:   strings.TrimSpace(userID),
		Lines:    append([]Line(nil), lines...),
		Status:   StatusPlaced,
		PlacedAt: time.Now().UTC(),
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return ErrEmptyUserRef
	}
	if len(o.Lines) == 0 {
		return ErrEmptyLines
	}
	for _, line := range o.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return ErrEmptyProductRef
		}
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	if !isValidStatus(o.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// TotalCents sums the order lines.
func (o *Order) TotalCents() int64 {
	var total int64
	for _, line := range o.Lines {
		total += line.UnitPriceCents * int64(line.Quantity)
	}
	return total
}

// Transition advances the order through its lifecycle. Cancel is allowed
// from any non-terminal state.
func (o *Order) Transition(next Status) error {
	if !isValidStatus(next) {
		return ErrInvalidStatus
	}
	if next == StatusCancelled {
		if o.Status == StatusDelivered || o.Status == StatusCancelled {
			return ErrInvalidTransition
		}
		o.Status = StatusCancelled
		return nil
	}
	allowed := map[Status]Status{
		StatusPlaced:   StatusApproved,
		StatusApproved: StatusShipped,
		StatusShipped:  StatusDelivered,
	}
	if expected, ok := allowed[o.Status]; !ok || expected != next {
		return ErrInvalidTransition
	}
	o.Status = next
	return nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusPlaced, StatusApproved, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}
