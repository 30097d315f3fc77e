package jobs

import (
	"context"

	"stockbill/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultAlertLimit = 1000

// LowStockSource lists products at or below their minimum stock level across tenants.
type LowStockSource interface {
	LowStockAll(ctx context.Context, limit int) ([]*models.Product, error)
}

type InventoryAlertService struct {
	products LowStockSource
	logger   logrus.FieldLogger
	limit    int
}

type InventoryAlert struct {
	TenantID      uuid.UUID
	ProductID     uuid.UUID
	ProductCode   string
	ProductName   string
	Unit          models.UnitType
	CurrentStock  decimal.Decimal
	MinStockLevel decimal.Decimal
}

func NewInventoryAlertService(products LowStockSource, logger logrus.FieldLogger) *InventoryAlertService {
	return &InventoryAlertService{
		products: products,
		logger:   logger,
		limit:    defaultAlertLimit,
	}
}

func (a *InventoryAlertService) CheckLowStock(ctx context.Context) ([]InventoryAlert, error) {
	products, err := a.products.LowStockAll(ctx, a.limit)
	if err != nil {
		return nil, err
	}

	alerts := make([]InventoryAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, InventoryAlert{
			TenantID:      p.TenantID,
			ProductID:     p.ID,
			ProductCode:   p.Code,
			ProductName:   p.Name,
			Unit:          p.Unit,
			CurrentStock:  p.Quantity,
			MinStockLevel: p.MinStockLevel,
		})
	}
	return alerts, nil
}

// LogLowStockAlerts writes one warning per product and a per-tenant count.
func (a *InventoryAlertService) LogLowStockAlerts(alerts []InventoryAlert) {
	if len(alerts) == 0 {
		a.logger.Debug("no low stock alerts")
		return
	}

	perTenant := make(map[uuid.UUID]int)
	for _, alert := range alerts {
		perTenant[alert.TenantID]++
		a.logger.WithFields(logrus.Fields{
			"tenant_id":       alert.TenantID,
			"product_code":    alert.ProductCode,
			"product_name":    alert.ProductName,
			"quantity":        alert.CurrentStock.String(),
			"min_stock_level": alert.MinStockLevel.String(),
			"unit":            alert.Unit.Code(),
		}).Warn("product is low on stock")
	}
	for tenantID, count := range perTenant {
		a.logger.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"products":  count,
		}).Warn("tenant has low stock products")
	}
}

// ScheduledLowStockCheck is the job body run by the scheduler.
func (a *InventoryAlertService) ScheduledLowStockCheck(ctx context.Context) error {
	alerts, err := a.CheckLowStock(ctx)
	if err != nil {
		a.logger.WithError(err).Error("low stock check failed")
		return err
	}
	a.LogLowStockAlerts(alerts)
	a.logger.WithField("alerts", len(alerts)).Info("low stock check completed")
	return nil
}
