package repositories

import (
	"context"
	"fmt"

	"stockbill/pkg/database"

	"github.com/google/uuid"
)

type InvoiceSequenceRepository interface {
	// Next advances the tenant's counter and returns the new value.
	Next(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type invoiceSequenceRepo struct {
	db database.DBTX
}

func NewInvoiceSequenceRepo(db database.DBTX) InvoiceSequenceRepository {
	return &invoiceSequenceRepo{db: db}
}

// Next upserts the tenant's counter row. Inside a transaction the row stays locked until commit,
// so concurrent invoice creation for one tenant is serialised on it. A tenant's first counter
// row is seeded past any invoices that already exist.
func (r *invoiceSequenceRepo) Next(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	query := `
		INSERT INTO invoice_sequences (tenant_id, last_number, updated_at)
		VALUES ($1, (SELECT COUNT(*) FROM invoices WHERE tenant_id = $1) + 1, NOW())
		ON CONFLICT (tenant_id) DO UPDATE
		SET last_number = invoice_sequences.last_number + 1, updated_at = NOW()
		RETURNING last_number
	`
	var seq int64
	if err := r.db.QueryRow(ctx, query, tenantID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to advance invoice sequence: %w", err)
	}
	return seq, nil
}
