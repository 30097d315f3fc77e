package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockbill/internal/common"
	"stockbill/internal/models"
	"stockbill/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	UpdateHeader(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status models.InvoiceStatus) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Invoice, error)
	ListByStatus(ctx context.Context, tenantID uuid.UUID, status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error)
	ListOverdue(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]*models.Invoice, error)

	InsertItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error)
	DeleteItems(ctx context.Context, invoiceID uuid.UUID) error
}

type invoiceRepo struct {
	db database.DBTX
}

func NewInvoiceRepo(db database.DBTX) InvoiceRepository {
	return &invoiceRepo{db: db}
}

const invoiceColumns = `id, tenant_id, invoice_number, invoice_date, due_date, customer_name, customer_email, customer_phone, customer_address,
	subtotal, tax_amount, discount_amount, total_amount, status, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	var status string
	err := row.Scan(&invoice.ID, &invoice.TenantID, &invoice.InvoiceNumber, &invoice.InvoiceDate, &invoice.DueDate,
		&invoice.CustomerName, &invoice.CustomerEmail, &invoice.CustomerPhone, &invoice.CustomerAddr,
		&invoice.Subtotal, &invoice.TaxAmount, &invoice.DiscountAmount, &invoice.TotalAmount, &status, &invoice.Notes,
		&invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, err
	}
	invoice.Status = models.InvoiceStatus(status)
	return invoice, nil
}

func collectInvoices(rows pgx.Rows) ([]*models.Invoice, error) {
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, tenant_id, invoice_number, invoice_date, due_date, customer_name, customer_email, customer_phone, customer_address,
			subtotal, tax_amount, discount_amount, total_amount, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, invoice.ID, invoice.TenantID, invoice.InvoiceNumber, invoice.InvoiceDate, invoice.DueDate,
		invoice.CustomerName, invoice.CustomerEmail, invoice.CustomerPhone, invoice.CustomerAddr,
		invoice.Subtotal, invoice.TaxAmount, invoice.DiscountAmount, invoice.TotalAmount, string(invoice.Status), invoice.Notes,
	).Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number %s: %w", invoice.InvoiceNumber, common.ErrDuplicateInvoiceNumber)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// GetByID returns the invoice header regardless of owner; ownership is checked by the caller.
func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate locks the invoice row until the surrounding transaction ends.
func (r *invoiceRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *invoiceRepo) getOne(ctx context.Context, query string, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

func (r *invoiceRepo) UpdateHeader(ctx context.Context, invoice *models.Invoice) error {
	query := `
		UPDATE invoices
		SET invoice_date = $1, due_date = $2, customer_name = $3, customer_email = $4, customer_phone = $5, customer_address = $6,
			subtotal = $7, tax_amount = $8, discount_amount = $9, total_amount = $10, status = $11, notes = $12, updated_at = NOW()
		WHERE tenant_id = $13 AND id = $14
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, invoice.InvoiceDate, invoice.DueDate, invoice.CustomerName, invoice.CustomerEmail,
		invoice.CustomerPhone, invoice.CustomerAddr, invoice.Subtotal, invoice.TaxAmount, invoice.DiscountAmount,
		invoice.TotalAmount, string(invoice.Status), invoice.Notes, invoice.TenantID, invoice.ID,
	).Scan(&invoice.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("invoice %s: %w", invoice.ID, common.ErrNotFound)
		}
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM invoices WHERE tenant_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status models.InvoiceStatus) error {
	query := `UPDATE invoices SET status = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, string(status), tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1
		ORDER BY invoice_date DESC, invoice_number DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return collectInvoices(rows)
}

func (r *invoiceRepo) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Invoice, error) {
	sql := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1 AND (
			invoice_number ILIKE $2 OR
			customer_name ILIKE $2 OR
			COALESCE(customer_email, '') ILIKE $2
		)
		ORDER BY invoice_date DESC, invoice_number DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, sql, tenantID, "%"+query+"%", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search invoices: %w", err)
	}
	return collectInvoices(rows)
}

func (r *invoiceRepo) ListByStatus(ctx context.Context, tenantID uuid.UUID, status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1 AND status = $2
		ORDER BY invoice_date DESC, invoice_number DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, tenantID, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices by status: %w", err)
	}
	return collectInvoices(rows)
}

// ListOverdue returns SENT invoices whose due date is strictly before today.
func (r *invoiceRepo) ListOverdue(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1 AND status = $2 AND due_date < $3
		ORDER BY due_date ASC
	`
	rows, err := r.db.Query(ctx, query, tenantID, string(models.InvoiceStatusSent), models.DateOnly(today))
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue invoices: %w", err)
	}
	return collectInvoices(rows)
}

func (r *invoiceRepo) InsertItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (id, invoice_id, product_id, quantity, unit_price, total_price, description, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, item := range items {
		if _, err := r.db.Exec(ctx, query, item.ID, invoiceID, item.ProductID, item.Quantity, item.UnitPrice,
			item.TotalPrice, item.Description, item.Position); err != nil {
			return fmt.Errorf("failed to insert invoice item %d: %w", item.Position, err)
		}
	}
	return nil
}

// GetItems loads the items in position order together with the product snapshot fields.
func (r *invoiceRepo) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	query := `
		SELECT ii.id, ii.invoice_id, ii.product_id, ii.quantity, ii.unit_price, ii.total_price, ii.description, ii.position,
			p.name, p.code, p.unit
		FROM invoice_items ii
		JOIN products p ON p.id = ii.product_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.position ASC
	`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	defer rows.Close()

	var items []models.InvoiceItem
	for rows.Next() {
		var item models.InvoiceItem
		var unit string
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
			&item.Description, &item.Position, &item.ProductName, &item.ProductCode, &unit); err != nil {
			return nil, err
		}
		item.ProductUnit = models.ParseUnitType(unit)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *invoiceRepo) DeleteItems(ctx context.Context, invoiceID uuid.UUID) error {
	query := `DELETE FROM invoice_items WHERE invoice_id = $1`
	if _, err := r.db.Exec(ctx, query, invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice items: %w", err)
	}
	return nil
}
