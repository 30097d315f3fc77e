package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"stockbill/internal/common"
	"stockbill/internal/models"
	"stockbill/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
)

// newContext builds an echo context for the request, carrying tenantID when it is not uuid.Nil.
func newContext(e *echo.Echo, req *http.Request, tenantID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	if tenantID != uuid.Nil {
		req = req.WithContext(common.WithTenantID(req.Context(), tenantID))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func jsonRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, tenantID uuid.UUID, input *models.ProductInput) (*models.Product, error) {
	args := m.Called(ctx, tenantID, input)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, tenantID, id uuid.UUID, input *models.ProductInput) (*models.Product, error) {
	args := m.Called(ctx, tenantID, id, input)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockProductService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, tenantID, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *MockProductService) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, tenantID, activeOnly, limit, offset)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductService) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, tenantID, query, limit, offset)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductService) ListByCategory(ctx context.Context, tenantID uuid.UUID, category string, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, tenantID, category, limit, offset)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductService) Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, tenantID)
	categories, _ := args.Get(0).([]string)
	return categories, args.Error(1)
}

func (m *MockProductService) LowStock(ctx context.Context, tenantID uuid.UUID) ([]*models.Product, error) {
	args := m.Called(ctx, tenantID)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *MockProductService) BulkImport(ctx context.Context, tenantID uuid.UUID, rows []models.ProductImportRow) (*models.BulkImportResult, error) {
	args := m.Called(ctx, tenantID, rows)
	result, _ := args.Get(0).(*models.BulkImportResult)
	return result, args.Error(1)
}

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Create(ctx context.Context, tenantID uuid.UUID, req *models.InvoiceRequest) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, req)
	invoice, _ := args.Get(0).(*models.Invoice)
	return invoice, args.Error(1)
}

func (m *MockInvoiceService) Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req *models.InvoiceRequest) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID, req)
	invoice, _ := args.Get(0).(*models.Invoice)
	return invoice, args.Error(1)
}

func (m *MockInvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	return m.Called(ctx, tenantID, invoiceID).Error(0)
}

func (m *MockInvoiceService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	invoice, _ := args.Get(0).(*models.Invoice)
	return invoice, args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	invoices, _ := args.Get(0).([]*models.Invoice)
	return invoices, args.Error(1)
}

func (m *MockInvoiceService) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, tenantID, query, limit, offset)
	invoices, _ := args.Get(0).([]*models.Invoice)
	return invoices, args.Error(1)
}

func (m *MockInvoiceService) ListByStatus(ctx context.Context, tenantID uuid.UUID, status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, tenantID, status, limit, offset)
	invoices, _ := args.Get(0).([]*models.Invoice)
	return invoices, args.Error(1)
}

func (m *MockInvoiceService) ListOverdue(ctx context.Context, tenantID uuid.UUID) ([]*models.Invoice, error) {
	args := m.Called(ctx, tenantID)
	invoices, _ := args.Get(0).([]*models.Invoice)
	return invoices, args.Error(1)
}

func (m *MockInvoiceService) UpdateStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status models.InvoiceStatus) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID, status)
	invoice, _ := args.Get(0).(*models.Invoice)
	return invoice, args.Error(1)
}

func (m *MockInvoiceService) GenerateInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*services.InvoiceDocument, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	doc, _ := args.Get(0).(*services.InvoiceDocument)
	return doc, args.Error(1)
}

func (m *MockInvoiceService) ArchiveInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.String(0), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) report(args mock.Arguments) (*models.Report, error) {
	report, _ := args.Get(0).(*models.Report)
	return report, args.Error(1)
}

func (m *MockReportService) Daily(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.Report, error) {
	return m.report(m.Called(ctx, tenantID, date))
}

func (m *MockReportService) Monthly(ctx context.Context, tenantID uuid.UUID, year int, month time.Month) (*models.Report, error) {
	return m.report(m.Called(ctx, tenantID, year, month))
}

func (m *MockReportService) Yearly(ctx context.Context, tenantID uuid.UUID, year int) (*models.Report, error) {
	return m.report(m.Called(ctx, tenantID, year))
}

func (m *MockReportService) Custom(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*models.Report, error) {
	return m.report(m.Called(ctx, tenantID, start, end))
}

func (m *MockReportService) ProductPerformance(ctx context.Context, tenantID uuid.UUID, limit int) (*models.Report, error) {
	return m.report(m.Called(ctx, tenantID, limit))
}

func (m *MockReportService) Dashboard(ctx context.Context, tenantID uuid.UUID, start, end time.Time, filters *models.ReportFilters) (*models.Report, error) {
	return m.report(m.Called(ctx, tenantID, start, end, filters))
}

func (m *MockReportService) RefreshDashboard(ctx context.Context, tenantID uuid.UUID) error {
	return m.Called(ctx, tenantID).Error(0)
}

func (m *MockReportService) Export(report *models.Report, format string) (*services.ReportFile, error) {
	args := m.Called(report, format)
	file, _ := args.Get(0).(*services.ReportFile)
	return file, args.Error(1)
}
