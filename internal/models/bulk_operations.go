package models

import (
	"github.com/shopspring/decimal"
)

// ProductImportRow is one parsed product record from an import feed.
type ProductImportRow struct {
	Line          int              `json:"line"`
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	MRP           *decimal.Decimal `json:"mrp,omitempty"`
	Quantity      decimal.Decimal  `json:"quantity"`
	MinStockLevel decimal.Decimal  `json:"min_stock_level"`
	Category      *string          `json:"category,omitempty"`
	Unit          string           `json:"unit"`
}

// BulkOperationError represents an error for a specific item in bulk operation
type BulkOperationError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// BulkImportResult lists the products created and the rows that were skipped.
type BulkImportResult struct {
	Created []*Product           `json:"created"`
	Skipped []BulkOperationError `json:"skipped,omitempty"`
}
