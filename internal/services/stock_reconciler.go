package services

import (
	"context"
	"fmt"

	"stockbill/internal/models"
	"stockbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StockReconciler keeps product stock in step with invoice item lines.
// Every write is a single relative UPDATE, so it must run inside the caller's transaction.
type StockReconciler struct {
	logger logrus.FieldLogger
}

func NewStockReconciler(logger logrus.FieldLogger) *StockReconciler {
	return &StockReconciler{logger: logger}
}

// Consume takes each item's quantity out of stock. Stock may go negative.
func (r *StockReconciler) Consume(ctx context.Context, products repositories.ProductRepository, tenantID uuid.UUID, items []models.InvoiceItem) ([]uuid.UUID, error) {
	return r.apply(ctx, products, tenantID, items, true)
}

// Restore puts each item's quantity back into stock.
func (r *StockReconciler) Restore(ctx context.Context, products repositories.ProductRepository, tenantID uuid.UUID, items []models.InvoiceItem) ([]uuid.UUID, error) {
	return r.apply(ctx, products, tenantID, items, false)
}

// Replace restores every old item and then consumes every new one. It never diffs the two lists.
func (r *StockReconciler) Replace(ctx context.Context, products repositories.ProductRepository, tenantID uuid.UUID, oldItems, newItems []models.InvoiceItem) ([]uuid.UUID, error) {
	restored, err := r.Restore(ctx, products, tenantID, oldItems)
	if err != nil {
		return nil, err
	}
	consumed, err := r.Consume(ctx, products, tenantID, newItems)
	if err != nil {
		return nil, err
	}
	return mergeIDs(restored, consumed), nil
}

func (r *StockReconciler) apply(ctx context.Context, products repositories.ProductRepository, tenantID uuid.UUID, items []models.InvoiceItem, consume bool) ([]uuid.UUID, error) {
	touched := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		delta := item.Quantity
		if consume {
			delta = delta.Neg()
		}
		qty, err := products.AdjustStock(ctx, tenantID, item.ProductID, delta)
		if err != nil {
			return nil, fmt.Errorf("failed to adjust stock for product %s: %w", item.ProductID, err)
		}
		if qty.LessThan(decimal.Zero) {
			r.logger.WithFields(logrus.Fields{
				"tenant_id":  tenantID,
				"product_id": item.ProductID,
				"quantity":   qty.String(),
			}).Warn("stock is negative")
		}
		touched = append(touched, item.ProductID)
	}
	return mergeIDs(touched), nil
}

// mergeIDs concatenates id lists, dropping duplicates and keeping first-seen order.
func mergeIDs(lists ...[]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
