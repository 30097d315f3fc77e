package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"stockbill/internal/common"
	"stockbill/internal/models"
	"stockbill/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const defaultTopProducts = 5

// ReportHandlers serves the sales reports and their file exports.
type ReportHandlers struct {
	reportService services.ReportService
	logger        logrus.FieldLogger
	now           func() time.Time
}

func NewReportHandlers(reportService services.ReportService, logger logrus.FieldLogger) *ReportHandlers {
	return &ReportHandlers{
		reportService: reportService,
		logger:        logger,
		now:           time.Now,
	}
}

// DailyReport handles GET /reports/daily?date=YYYY-MM-DD (defaults to today)
func (h *ReportHandlers) DailyReport(c echo.Context) error {
	return h.serve(c, "daily")
}

// MonthlyReport handles GET /reports/monthly?year=&month=
func (h *ReportHandlers) MonthlyReport(c echo.Context) error {
	return h.serve(c, "monthly")
}

// YearlyReport handles GET /reports/yearly?year=
func (h *ReportHandlers) YearlyReport(c echo.Context) error {
	return h.serve(c, "yearly")
}

// CustomReport handles GET /reports/custom?start_date=&end_date=
func (h *ReportHandlers) CustomReport(c echo.Context) error {
	return h.serve(c, "custom")
}

// ProductPerformanceReport handles GET /reports/product-performance?limit=
func (h *ReportHandlers) ProductPerformanceReport(c echo.Context) error {
	return h.serve(c, "product-performance")
}

// DashboardReport handles GET /reports/dashboard?start_date=&end_date=&status=&customer=
func (h *ReportHandlers) DashboardReport(c echo.Context) error {
	return h.serve(c, "dashboard")
}

// ExportReport handles GET /reports/:type/export?format=pdf|xlsx. The report is
// built from the same query parameters as its JSON endpoint.
func (h *ReportHandlers) ExportReport(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	report, err := h.build(c, tenantID, c.Param("type"))
	if err != nil {
		return common.SendError(c, "report", err)
	}

	file, err := h.reportService.Export(report, c.QueryParam("format"))
	if err != nil {
		return common.SendError(c, "report", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Filename))
	return c.Blob(http.StatusOK, file.ContentType, file.Content)
}

func (h *ReportHandlers) serve(c echo.Context, kind string) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	report, err := h.build(c, tenantID, kind)
	if err != nil {
		return common.SendError(c, "report", err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *ReportHandlers) build(c echo.Context, tenantID uuid.UUID, kind string) (*models.Report, error) {
	ctx := c.Request().Context()
	today := models.DateOnly(h.now())

	switch kind {
	case "daily":
		date, err := optionalDate(c, "date", today)
		if err != nil {
			return nil, err
		}
		return h.reportService.Daily(ctx, tenantID, date)

	case "monthly":
		year, err := queryInt(c, "year", today.Year())
		if err != nil {
			return nil, err
		}
		month, err := queryInt(c, "month", int(today.Month()))
		if err != nil {
			return nil, err
		}
		return h.reportService.Monthly(ctx, tenantID, year, time.Month(month))

	case "yearly":
		year, err := queryInt(c, "year", today.Year())
		if err != nil {
			return nil, err
		}
		return h.reportService.Yearly(ctx, tenantID, year)

	case "custom":
		start, err := common.ParseDate(c.QueryParam("start_date"), "start_date")
		if err != nil {
			return nil, err
		}
		end, err := common.ParseDate(c.QueryParam("end_date"), "end_date")
		if err != nil {
			return nil, err
		}
		return h.reportService.Custom(ctx, tenantID, start, end)

	case "product-performance":
		limit, err := queryInt(c, "limit", defaultTopProducts)
		if err != nil {
			return nil, err
		}
		return h.reportService.ProductPerformance(ctx, tenantID, limit)

	case "dashboard":
		defStart, defEnd := services.DefaultDashboardRange(h.now())
		start, err := optionalDate(c, "start_date", defStart)
		if err != nil {
			return nil, err
		}
		end, err := optionalDate(c, "end_date", defEnd)
		if err != nil {
			return nil, err
		}

		var filters *models.ReportFilters
		status := strings.TrimSpace(c.QueryParam("status"))
		customer := strings.TrimSpace(c.QueryParam("customer"))
		if status != "" || customer != "" {
			filters = &models.ReportFilters{}
			if status != "" {
				s := models.InvoiceStatus(strings.ToUpper(status))
				filters.Status = &s
			}
			if customer != "" {
				filters.CustomerName = &customer
			}
		}
		return h.reportService.Dashboard(ctx, tenantID, start, end, filters)
	}

	return nil, fmt.Errorf("report type %q: %w", kind, common.ErrNotFound)
}

func optionalDate(c echo.Context, name string, fallback time.Time) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return common.ParseDate(raw, name)
}
