package domain

import (
	"errors"
	"strings"
)

// Status enumerates catalog availability.
type Status string

const (
	StatusActive       Status = "active"
	StatusDiscontinued Status = "discontinued"
)

var (
	ErrEmptySKU          = errors.New("sku is required")
	ErrEmptyName         = errors.New("product name is required")
	ErrInvalidPrice      = errors.New("unit price must be greater than zero")
	ErrInvalidStatus     = errors.New("product status is invalid")
	ErrNegativeStock     = errors.New("stock level cannot be negative")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is the catalog aggregate owned by the products service. Other
// services reference it by ID only.
type Product struct {
	ID             string
	SKU            string
	Name           string
	Description    string
	UnitPriceCents int64
	Tags           []string
	Status         Status
	StockLevel     int32
}

// NewProduct validates and constructs a new catalog entry.
func NewProduct(sku, name string, unitPriceCents int64) (*Product, error) {
	product := &Product{Status: StatusActive}
	if err := product.SetSKU(sku); err != nil {
		return nil, err
	}
	if err := product.Rename(name); err != nil {
		return nil, err
	}
	if err := product.Reprice(unitPriceCents); err != nil {
		return nil, err
	}
	return product, nil
}

// SetSKU trims and validates the stock keeping unit.
func (p *Product) SetSKU(sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return ErrEmptySKU
	}
	p.SKU = sku
	return nil
}

// Rename trims and validates the display name.
func (p *Product) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	p.Name = name
	return nil
}

// Reprice sets the unit price in cents.
func (p *Product) Reprice(unitPriceCents int64) error {
	if unitPriceCents <= 0 {
		return ErrInvalidPrice
	}
	p.UnitPriceCents = unitPriceCents
	return nil
}

// Tag appends a tag when not already present.
func (p *Product) Tag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	for _, existing := range p.Tags {
		if existing == tag {
			return
		}
	}
	p.Tags = append(p.Tags, tag)
}

// UpdateStatus ensures only known states are accepted and defaults to active.
func (p *Product) UpdateStatus(status Status) error {
	if status == "" {
		status = StatusActive
	}
	if !isValidStatus(status) {
		return ErrInvalidStatus
	}
	p.Status = status
	return nil
}

// AdjustStock applies a delta to the stock level. Negative deltas that would
// drive stock below zero fail with ErrInsufficientStock.
func (p *Product) AdjustStock(delta int32) error {
	next := p.StockLevel + delta
	if next < 0 {
		return ErrInsufficientStock
	}
	p.StockLevel = next
	return nil
}

// Validate enforces invariants on the aggregate.
func (p *Product) Validate() error {
	if err := p.SetSKU(p.SKU); err != nil {
		return err
	}
	if err := p.Rename(p.Name); err != nil {
		return err
	}
	if err := p.Reprice(p.UnitPriceCents); err != nil {
		return err
	}
	if p.StockLevel < 0 {
		return ErrNegativeStock
	}
	return p.UpdateStatus(p.Status)
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusDiscontinued:
		return true
	default:
		return false
	}
}
