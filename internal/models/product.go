package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitType is the unit of measure a product is sold in.
type UnitType string

const (
	UnitPieces    UnitType = "PIECES"
	UnitKilograms UnitType = "KILOGRAMS"
	UnitGrams     UnitType = "GRAMS"
	UnitLiters    UnitType = "LITERS"
)

type unitInfo struct {
	code        string
	displayName string
	fractional  bool
}

var unitTypes = map[UnitType]unitInfo{
	UnitPieces:    {code: "pcs", displayName: "Pieces", fractional: false},
	UnitKilograms: {code: "kg", displayName: "Kilograms", fractional: true},
	UnitGrams:     {code: "g", displayName: "Grams", fractional: true},
	UnitLiters:    {code: "L", displayName: "Liters", fractional: true},
}

// UnitTypes lists every declared unit in display order.
func UnitTypes() []UnitType {
	return []UnitType{UnitPieces, UnitKilograms, UnitGrams, UnitLiters}
}

func (u UnitType) IsValid() bool {
	_, ok := unitTypes[u]
	return ok
}

// Code returns the short code ("pcs", "kg", ...).
func (u UnitType) Code() string {
	return unitTypes[u].code
}

func (u UnitType) DisplayName() string {
	return unitTypes[u].displayName
}

// AllowsFractional reports whether quantities in this unit may carry a fractional part.
// Unknown units are treated as countable.
func (u UnitType) AllowsFractional() bool {
	return unitTypes[u].fractional
}

// ParseUnitType accepts the unit name, short code or display name, case-insensitively.
// Anything unrecognised falls back to PIECES.
func ParseUnitType(s string) UnitType {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnitPieces
	}
	for unit, info := range unitTypes {
		if strings.EqualFold(s, string(unit)) ||
			strings.EqualFold(s, info.code) ||
			strings.EqualFold(s, info.displayName) {
			return unit
		}
	}
	return UnitPieces
}

// ValidateQuantity checks that qty is positive and representable in the unit.
func (u UnitType) ValidateQuantity(qty decimal.Decimal) bool {
	if !qty.IsPositive() {
		return false
	}
	return u.AllowsFractional() || qty.IsInteger()
}

type Product struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	TenantID      uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	Code          string           `json:"code" db:"code"`
	Name          string           `json:"name" db:"name"`
	Description   *string          `json:"description" db:"description"`
	Price         decimal.Decimal  `json:"price" db:"price"`
	MRP           *decimal.Decimal `json:"mrp" db:"mrp"`
	Quantity      decimal.Decimal  `json:"quantity" db:"quantity"`
	MinStockLevel decimal.Decimal  `json:"min_stock_level" db:"min_stock_level"`
	Unit          UnitType         `json:"unit" db:"unit"`
	Active        bool             `json:"active" db:"active"`
	Category      *string          `json:"category" db:"category"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether stock on hand has reached the advisory minimum.
func (p *Product) IsLowStock() bool {
	return p.Quantity.LessThanOrEqual(p.MinStockLevel)
}

// ProductInput carries the caller-editable fields of a product.
type ProductInput struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price         decimal.Decimal  `json:"price"`
	MRP           *decimal.Decimal `json:"mrp,omitempty"`
	Quantity      decimal.Decimal  `json:"quantity"`
	MinStockLevel decimal.Decimal  `json:"min_stock_level"`
	Unit          string           `json:"unit"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Active        *bool            `json:"active,omitempty"`
}
