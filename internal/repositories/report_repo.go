package repositories

import (
	"context"
	"fmt"
	"time"

	"stockbill/internal/models"
	"stockbill/pkg/database"

	"github.com/google/uuid"
)

// ReportRepository fetches the raw rows the report aggregator folds over.
type ReportRepository interface {
	InvoiceStats(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]models.InvoiceStat, error)
	// PaidItemSales returns item lines of PAID invoices. A nil range means the whole history.
	PaidItemSales(ctx context.Context, tenantID uuid.UUID, start, end *time.Time) ([]models.ItemSale, error)
	ActiveTenants(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

type reportRepo struct {
	db database.DBTX
}

func NewReportRepo(db database.DBTX) ReportRepository {
	return &reportRepo{db: db}
}

// InvoiceStats returns every invoice in [start, end] whatever its status.
func (r *reportRepo) InvoiceStats(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]models.InvoiceStat, error) {
	query := `
		SELECT id, invoice_date, status, total_amount
		FROM invoices
		WHERE tenant_id = $1 AND invoice_date BETWEEN $2 AND $3
		ORDER BY invoice_date ASC
	`
	rows, err := r.db.Query(ctx, query, tenantID, models.DateOnly(start), models.DateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice stats: %w", err)
	}
	defer rows.Close()

	var stats []models.InvoiceStat
	for rows.Next() {
		var stat models.InvoiceStat
		var status string
		if err := rows.Scan(&stat.ID, &stat.InvoiceDate, &status, &stat.TotalAmount); err != nil {
			return nil, err
		}
		stat.Status = models.InvoiceStatus(status)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (r *reportRepo) PaidItemSales(ctx context.Context, tenantID uuid.UUID, start, end *time.Time) ([]models.ItemSale, error) {
	query := `
		SELECT ii.product_id, p.name, p.code, i.invoice_date, ii.quantity, ii.total_price
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id
		WHERE i.tenant_id = $1 AND i.status = $2
	`
	args := []interface{}{tenantID, string(models.InvoiceStatusPaid)}
	if start != nil && end != nil {
		args = append(args, models.DateOnly(*start), models.DateOnly(*end))
		query += " AND i.invoice_date BETWEEN $3 AND $4"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query item sales: %w", err)
	}
	defer rows.Close()

	var sales []models.ItemSale
	for rows.Next() {
		var sale models.ItemSale
		if err := rows.Scan(&sale.ProductID, &sale.ProductName, &sale.ProductCode, &sale.InvoiceDate,
			&sale.Quantity, &sale.TotalPrice); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// ActiveTenants lists tenants with invoices updated since the given time.
func (r *reportRepo) ActiveTenants(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT tenant_id FROM invoices WHERE updated_at >= $1`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}
