package application

import (
	"errors"
	"fmt"

	"github.com/erpmesh/erpmesh/internal/domains/orders/domain"
	"github.com/erpmesh/erpmesh/internal/domains/orders/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrConflict signals the request clashes with current order state.
	ErrConflict = errors.New("order conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyUserRef) ||
		errors.Is(err, domain.ErrEmptyLines) ||
		errors.Is(err, domain.ErrEmptyProductRef) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidStatus) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, ports.ErrIdempotencyConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
