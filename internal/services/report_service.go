package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockbill/internal/analytics"
	"stockbill/internal/caching"
	"stockbill/internal/common"
	"stockbill/internal/exporters"
	"stockbill/internal/models"
	"stockbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const dashboardWindow = 30

type ReportService interface {
	Daily(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.Report, error)
	Monthly(ctx context.Context, tenantID uuid.UUID, year int, month time.Month) (*models.Report, error)
	Yearly(ctx context.Context, tenantID uuid.UUID, year int) (*models.Report, error)
	Custom(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*models.Report, error)
	ProductPerformance(ctx context.Context, tenantID uuid.UUID, limit int) (*models.Report, error)
	Dashboard(ctx context.Context, tenantID uuid.UUID, start, end time.Time, filters *models.ReportFilters) (*models.Report, error)

	// RefreshDashboard rebuilds the default dashboard and replaces the cached copy.
	RefreshDashboard(ctx context.Context, tenantID uuid.UUID) error
	Export(report *models.Report, format string) (*ReportFile, error)
}

// ReportFile is an exported report with its HTTP metadata.
type ReportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type reportService struct {
	reportRepo   repositories.ReportRepository
	aggregator   *analytics.Aggregator
	exporter     exporters.ReportExporter
	cacheService caching.CacheService
	cacheTTL     time.Duration
	logger       logrus.FieldLogger
	now          func() time.Time
}

// NewReportService wires the report pipeline. cacheService may be nil.
func NewReportService(reportRepo repositories.ReportRepository, aggregator *analytics.Aggregator, exporter exporters.ReportExporter, cacheService caching.CacheService, cacheTTL time.Duration, logger logrus.FieldLogger) ReportService {
	return &reportService{
		reportRepo:   reportRepo,
		aggregator:   aggregator,
		exporter:     exporter,
		cacheService: cacheService,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// DefaultDashboardRange is the last 30 days up to and including today.
func DefaultDashboardRange(now time.Time) (time.Time, time.Time) {
	end := models.DateOnly(now)
	return end.AddDate(0, 0, -(dashboardWindow - 1)), end
}

func (s *reportService) rangeReport(ctx context.Context, reportType models.ReportType, tenantID uuid.UUID, start, end time.Time, filters *models.ReportFilters, withTopProducts bool) (*models.Report, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if err := common.ValidateDateRange(start, end); err != nil {
		return nil, err
	}

	stats, err := s.reportRepo.InvoiceStats(ctx, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	var sales []models.ItemSale
	if withTopProducts {
		if sales, err = s.reportRepo.PaidItemSales(ctx, tenantID, &start, &end); err != nil {
			return nil, err
		}
		if sales == nil {
			sales = []models.ItemSale{}
		}
	}

	report := s.aggregator.Build(reportType, tenantID, start, end, stats, sales, analytics.DefaultTopProducts)
	report.GeneratedAt = s.now()
	report.Filters = filters

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"type":      reportType,
		"start":     start.Format("2006-01-02"),
		"end":       end.Format("2006-01-02"),
	}).Info("report generated")
	return report, nil
}

func (s *reportService) Daily(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.Report, error) {
	return s.rangeReport(ctx, models.ReportDaily, tenantID, date, date, nil, false)
}

func (s *reportService) Monthly(ctx context.Context, tenantID uuid.UUID, year int, month time.Month) (*models.Report, error) {
	if month < time.January || month > time.December {
		return nil, common.NewValidationError("month", "must be between 1 and 12")
	}
	if err := validateYear(year); err != nil {
		return nil, err
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return s.rangeReport(ctx, models.ReportMonthly, tenantID, start, end, nil, false)
}

// Yearly covers the calendar year and adds a per-month breakdown.
func (s *reportService) Yearly(ctx context.Context, tenantID uuid.UUID, year int) (*models.Report, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return s.rangeReport(ctx, models.ReportYearly, tenantID, start, end, nil, false)
}

func (s *reportService) Custom(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*models.Report, error) {
	return s.rangeReport(ctx, models.ReportCustom, tenantID, start, end, nil, false)
}

// ProductPerformance ranks products over the whole PAID history. limit <= 0 keeps every product.
func (s *reportService) ProductPerformance(ctx context.Context, tenantID uuid.UUID, limit int) (*models.Report, error) {
	sales, err := s.reportRepo.PaidItemSales(ctx, tenantID, nil, nil)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Type:               models.ReportProductPerformance,
		TenantID:           tenantID,
		GeneratedAt:        s.now(),
		ProductPerformance: analytics.ProductSales(sales, limit),
	}
	for _, sale := range sales {
		report.TotalRevenue = report.TotalRevenue.Add(sale.TotalPrice)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"products":  len(report.ProductPerformance),
	}).Info("product performance report generated")
	return report, nil
}

func dashboardCacheKey(start, end time.Time, filters *models.ReportFilters) string {
	status, customer := "", ""
	if filters != nil {
		if filters.Status != nil {
			status = string(*filters.Status)
		}
		customer = strings.ToLower(common.SafeString(filters.CustomerName))
	}
	return strings.Join([]string{"dashboard", start.Format("2006-01-02"), end.Format("2006-01-02"), status, customer}, "|")
}

func normaliseFilters(filters *models.ReportFilters) (*models.ReportFilters, error) {
	if filters == nil {
		return nil, nil
	}
	out := &models.ReportFilters{Status: filters.Status}
	if out.Status != nil && !out.Status.IsValid() {
		return nil, common.NewValidationError("status", "is not a valid invoice status")
	}
	out.CustomerName = common.StringPtr(common.SanitizeSearchQuery(common.SafeString(filters.CustomerName)))
	if out.Status == nil && out.CustomerName == nil {
		return nil, nil
	}
	return out, nil
}

// Dashboard serves from cache when it can. Filters are echoed on the report and do not narrow the figures.
func (s *reportService) Dashboard(ctx context.Context, tenantID uuid.UUID, start, end time.Time, filters *models.ReportFilters) (*models.Report, error) {
	filters, err := normaliseFilters(filters)
	if err != nil {
		return nil, err
	}
	start, end = models.DateOnly(start), models.DateOnly(end)
	key := dashboardCacheKey(start, end, filters)

	if s.cacheService != nil {
		cached, err := s.cacheService.GetReport(ctx, tenantID, key)
		if err != nil {
			s.logger.WithError(err).WithField("tenant_id", tenantID).Warn("report cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	report, err := s.rangeReport(ctx, models.ReportDashboard, tenantID, start, end, filters, true)
	if err != nil {
		return nil, err
	}
	s.store(ctx, tenantID, key, report)
	return report, nil
}

func (s *reportService) RefreshDashboard(ctx context.Context, tenantID uuid.UUID) error {
	start, end := DefaultDashboardRange(s.now())
	report, err := s.rangeReport(ctx, models.ReportDashboard, tenantID, start, end, nil, true)
	if err != nil {
		return err
	}
	s.store(ctx, tenantID, dashboardCacheKey(start, end, nil), report)
	return nil
}

func (s *reportService) store(ctx context.Context, tenantID uuid.UUID, key string, report *models.Report) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.SetReport(ctx, tenantID, key, report, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("tenant_id", tenantID).Warn("failed to cache report")
	}
}

func (s *reportService) Export(report *models.Report, format string) (*ReportFile, error) {
	if report == nil {
		return nil, common.NewValidationError("report", "is required")
	}
	base := strings.ToLower(string(report.Type)) + "-report"
	if !report.StartDate.IsZero() {
		base += "-" + report.StartDate.Format("20060102")
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pdf":
		content, err := s.exporter.ReportPDF(report)
		if err != nil {
			return nil, fmt.Errorf("failed to export report: %w", err)
		}
		return &ReportFile{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	case "xlsx", "excel":
		content, err := s.exporter.ReportExcel(report)
		if err != nil {
			return nil, fmt.Errorf("failed to export report: %w", err)
		}
		return &ReportFile{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	default:
		return nil, common.NewValidationError("format", "must be pdf or xlsx")
	}
}

func validateYear(year int) error {
	if year < 1 || year > 9999 {
		return common.NewValidationError("year", "is out of range")
	}
	return nil
}
