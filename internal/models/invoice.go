package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// InvoiceStatuses returns every declared status, ordered by name.
func InvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusCancelled,
		InvoiceStatusDraft,
		InvoiceStatusOverdue,
		InvoiceStatusPaid,
		InvoiceStatusSent,
	}
}

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// ParseInvoiceStatus resolves a status name case-insensitively.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	return status, status.IsValid()
}

type Invoice struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	TenantID       uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	InvoiceNumber  string          `json:"invoice_number" db:"invoice_number"`
	InvoiceDate    time.Time       `json:"invoice_date" db:"invoice_date"`
	DueDate        *time.Time      `json:"due_date" db:"due_date"`
	CustomerName   string          `json:"customer_name" db:"customer_name"`
	CustomerEmail  *string         `json:"customer_email" db:"customer_email"`
	CustomerPhone  *string         `json:"customer_phone" db:"customer_phone"`
	CustomerAddr   *string         `json:"customer_address" db:"customer_address"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status         InvoiceStatus   `json:"status" db:"status"`
	Notes          *string         `json:"notes" db:"notes"`
	Items          []InvoiceItem   `json:"items"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// CalculateTotals recomputes every item's line total, then the invoice subtotal and total.
// Total = subtotal + tax - discount; no clamping is applied.
func (inv *Invoice) CalculateTotals() {
	subtotal := decimal.Zero
	for i := range inv.Items {
		inv.Items[i].Recalculate()
		subtotal = subtotal.Add(inv.Items[i].TotalPrice)
	}
	inv.Subtotal = subtotal
	inv.TotalAmount = subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
}

// IsOverdue reports whether a SENT invoice is past its due date as of today.
func (inv *Invoice) IsOverdue(today time.Time) bool {
	if inv.Status != InvoiceStatusSent || inv.DueDate == nil {
		return false
	}
	return DateOnly(*inv.DueDate).Before(DateOnly(today))
}

type InvoiceItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" db:"total_price"`
	Description *string         `json:"description" db:"description"`
	Position    int             `json:"position" db:"position"`

	// Product snapshot, populated on read.
	ProductName string   `json:"product_name,omitempty"`
	ProductCode string   `json:"product_code,omitempty"`
	ProductUnit UnitType `json:"product_unit,omitempty"`
}

// NewInvoiceItem builds an item with its line total already computed.
func NewInvoiceItem(productID uuid.UUID, quantity, unitPrice decimal.Decimal) InvoiceItem {
	item := InvoiceItem{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	item.Recalculate()
	return item
}

func (it *InvoiceItem) SetQuantity(q decimal.Decimal) {
	it.Quantity = q
	it.Recalculate()
}

func (it *InvoiceItem) SetUnitPrice(p decimal.Decimal) {
	it.UnitPrice = p
	it.Recalculate()
}

func (it *InvoiceItem) Recalculate() {
	it.TotalPrice = it.UnitPrice.Mul(it.Quantity)
}

// InvoiceItemRequest is one requested line on an invoice.
type InvoiceItemRequest struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=500"`
}

// InvoiceRequest carries the header and items for invoice create and update.
type InvoiceRequest struct {
	InvoiceDate    time.Time            `json:"invoice_date" validate:"required"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	CustomerName   string               `json:"customer_name" validate:"required,max=255"`
	CustomerEmail  *string              `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerPhone  *string              `json:"customer_phone,omitempty" validate:"omitempty,max=50"`
	CustomerAddr   *string              `json:"customer_address,omitempty" validate:"omitempty,max=1000"`
	TaxAmount      *decimal.Decimal     `json:"tax_amount,omitempty"`
	DiscountAmount *decimal.Decimal     `json:"discount_amount,omitempty"`
	Status         *InvoiceStatus       `json:"status,omitempty"`
	Notes          *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Items          []InvoiceItemRequest `json:"items" validate:"dive"`
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
