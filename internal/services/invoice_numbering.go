package services

import (
	"context"
	"fmt"
	"time"

	"stockbill/internal/repositories"

	"github.com/google/uuid"
)

// InvoiceNumberer hands out INV-{tenant}-{year}-{seq} numbers from the tenant's counter row.
type InvoiceNumberer struct {
	now func() time.Time
}

// NewInvoiceNumberer uses now for the year component. A nil clock means time.Now.
func NewInvoiceNumberer(now func() time.Time) *InvoiceNumberer {
	if now == nil {
		now = time.Now
	}
	return &InvoiceNumberer{now: now}
}

func FormatInvoiceNumber(tenantID uuid.UUID, year int, seq int64) string {
	return fmt.Sprintf("INV-%s-%d-%06d", tenantID, year, seq)
}

// Next advances the tenant's sequence. Called inside the invoice transaction, the counter
// row stays locked until commit so concurrent creates for one tenant serialise here.
func (n *InvoiceNumberer) Next(ctx context.Context, sequences repositories.InvoiceSequenceRepository, tenantID uuid.UUID) (string, error) {
	seq, err := sequences.Next(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to advance invoice sequence: %w", err)
	}
	return FormatInvoiceNumber(tenantID, n.now().Year(), seq), nil
}
