package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReportType string

const (
	ReportDaily              ReportType = "DAILY"
	ReportMonthly            ReportType = "MONTHLY"
	ReportYearly             ReportType = "YEARLY"
	ReportCustom             ReportType = "CUSTOM"
	ReportProductPerformance ReportType = "PRODUCT_PERFORMANCE"
	ReportDashboard          ReportType = "DASHBOARD"
)

// InvoiceStat is the slice of an invoice the report aggregator reads.
type InvoiceStat struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceDate time.Time       `json:"invoice_date"`
	Status      InvoiceStatus   `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ItemSale is one item line of a PAID invoice joined with its product.
type ItemSale struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code"`
	InvoiceDate time.Time       `json:"invoice_date"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DailySales struct {
	Date    time.Time       `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

type MonthlySales struct {
	Year    int             `json:"year"`
	Month   time.Month      `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ProductSales struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductCode   string          `json:"product_code"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type ReportSummary struct {
	TotalInvoices       int64           `json:"total_invoices"`
	PaidInvoices        int64           `json:"paid_invoices"`
	PendingInvoices     int64           `json:"pending_invoices"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	AverageInvoiceValue decimal.Decimal `json:"average_invoice_value"`
}

type ReportFilters struct {
	Status       *InvoiceStatus `json:"status,omitempty"`
	CustomerName *string        `json:"customer_name,omitempty"`
}

// Report is the read model returned by every report operation.
type Report struct {
	Type               ReportType      `json:"type"`
	TenantID           uuid.UUID       `json:"tenant_id"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	GeneratedAt        time.Time       `json:"generated_at"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	StatusDistribution []StatusCount   `json:"status_distribution"`
	DailySales         []DailySales    `json:"daily_sales,omitempty"`
	MonthlySales       []MonthlySales  `json:"monthly_sales,omitempty"`
	TopProducts        []ProductSales  `json:"top_products,omitempty"`
	ProductPerformance []ProductSales  `json:"product_performance,omitempty"`
	Summary            ReportSummary   `json:"summary"`
	Filters            *ReportFilters  `json:"filters,omitempty"`
}
