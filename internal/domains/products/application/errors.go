package application

import (
	"errors"
	"fmt"

	"github.com/erpmesh/erpmesh/internal/domains/products/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid product input")
	// ErrStockConflict wraps stock adjustments that cannot be satisfied.
	ErrStockConflict = errors.New("stock conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptySKU) ||
		errors.Is(err, domain.ErrEmptyName) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrNegativeStock) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if errors.Is(err, domain.ErrInsufficientStock) {
		return fmt.Errorf("%w: %w", ErrStockConflict, err)
	}
	return err
}
