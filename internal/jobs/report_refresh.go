package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	refreshConcurrency = 5
	activityLookback   = 30 * 24 * time.Hour
)

// TenantSource lists tenants that issued invoices since a point in time.
type TenantSource interface {
	ActiveTenants(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// DashboardRefresher rebuilds and re-caches a tenant's default dashboard.
type DashboardRefresher interface {
	RefreshDashboard(ctx context.Context, tenantID uuid.UUID) error
}

type ReportRefreshService struct {
	tenants TenantSource
	reports DashboardRefresher
	logger  logrus.FieldLogger
	now     func() time.Time
}

type ReportRefreshResult struct {
	TenantsProcessed int
	TenantsFailed    int
	LastRefreshAt    time.Time
}

func NewReportRefreshService(tenants TenantSource, reports DashboardRefresher, logger logrus.FieldLogger) *ReportRefreshService {
	return &ReportRefreshService{
		tenants: tenants,
		reports: reports,
		logger:  logger,
		now:     time.Now,
	}
}

// RefreshAllTenants warms the dashboard cache for every recently active tenant,
// at most refreshConcurrency at a time. One tenant failing does not stop the others.
func (r *ReportRefreshService) RefreshAllTenants(ctx context.Context) (*ReportRefreshResult, error) {
	started := r.now()
	tenants, err := r.tenants.ActiveTenants(ctx, started.Add(-activityLookback))
	if err != nil {
		r.logger.WithError(err).Error("failed to list active tenants")
		return nil, err
	}

	semaphore := make(chan struct{}, refreshConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	result := &ReportRefreshResult{LastRefreshAt: started}

	for _, tenantID := range tenants {
		wg.Add(1)
		go func(tenantID uuid.UUID) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			err := r.reports.RefreshDashboard(ctx, tenantID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.TenantsFailed++
				r.logger.WithError(err).WithField("tenant_id", tenantID).Warn("failed to refresh dashboard")
				return
			}
			result.TenantsProcessed++
		}(tenantID)
	}
	wg.Wait()

	r.logger.WithFields(logrus.Fields{
		"processed": result.TenantsProcessed,
		"failed":    result.TenantsFailed,
	}).Info("report refresh completed")
	return result, nil
}

// ScheduledRefresh is the job body run by the scheduler.
func (r *ReportRefreshService) ScheduledRefresh(ctx context.Context) error {
	_, err := r.RefreshAllTenants(ctx)
	return err
}
