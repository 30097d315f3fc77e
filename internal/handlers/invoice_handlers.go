package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"stockbill/internal/common"
	"stockbill/internal/config"
	"stockbill/internal/models"
	"stockbill/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// InvoiceHandlers handles HTTP requests for invoices
type InvoiceHandlers struct {
	invoiceService services.InvoiceServiceInterface
	logger         logrus.FieldLogger
}

// NewInvoiceHandlers creates a new invoice handlers instance
func NewInvoiceHandlers(invoiceService services.InvoiceServiceInterface, logger logrus.FieldLogger) *InvoiceHandlers {
	return &InvoiceHandlers{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// CreateInvoice handles POST /invoices
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	var req models.InvoiceRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	invoice, err := h.invoiceService.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return common.SendError(c, "invoice", err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Invoice created successfully",
		"invoice": invoice,
	})
}

// GetInvoice handles GET /invoices/:id
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	invoice, err := h.invoiceService.Get(c.Request().Context(), tenantID, id)
	if err != nil {
		return common.SendError(c, "invoice", err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice handles PUT /invoices/:id. The request replaces the header and every item.
func (h *InvoiceHandlers) UpdateInvoice(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req models.InvoiceRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	invoice, err := h.invoiceService.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return common.SendError(c, "invoice", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Invoice updated successfully",
		"invoice": invoice,
	})
}

// DeleteInvoice handles DELETE /invoices/:id
func (h *InvoiceHandlers) DeleteInvoice(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if err := h.invoiceService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return common.SendError(c, "invoice", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Invoice deleted successfully"})
}

// ListInvoices handles GET /invoices, optionally filtered with ?status=
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	ctx := c.Request().Context()

	var invoices []*models.Invoice
	if raw := c.QueryParam("status"); raw != "" {
		invoices, err = h.invoiceService.ListByStatus(ctx, tenantID, models.InvoiceStatus(strings.ToUpper(raw)), limit, offset)
	} else {
		invoices, err = h.invoiceService.List(ctx, tenantID, limit, offset)
	}
	if err != nil {
		return common.SendError(c, "invoices", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// SearchInvoices handles GET /invoices/search?q=
func (h *InvoiceHandlers) SearchInvoices(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return common.SendValidationError(c, "q", "is required")
	}
	limit, offset := pagination(c)

	invoices, err := h.invoiceService.Search(c.Request().Context(), tenantID, query, limit, offset)
	if err != nil {
		return common.SendError(c, "invoices", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// ListOverdueInvoices handles GET /invoices/overdue
func (h *InvoiceHandlers) ListOverdueInvoices(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	invoices, err := h.invoiceService.ListOverdue(c.Request().Context(), tenantID)
	if err != nil {
		return common.SendError(c, "invoices", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateInvoiceStatus handles PUT /invoices/:id/status
func (h *InvoiceHandlers) UpdateInvoiceStatus(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if strings.TrimSpace(req.Status) == "" {
		return common.SendValidationError(c, "status", "is required")
	}
	status, valid := models.ParseInvoiceStatus(req.Status)
	if !valid {
		return common.SendValidationError(c, "status", "must be one of "+statusNames())
	}

	invoice, err := h.invoiceService.UpdateStatus(c.Request().Context(), tenantID, id, status)
	if err != nil {
		return common.SendError(c, "invoice", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Invoice status updated successfully",
		"invoice": invoice,
	})
}

// DownloadInvoicePDF handles GET /invoices/:id/pdf
func (h *InvoiceHandlers) DownloadInvoicePDF(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	doc, err := h.invoiceService.GenerateInvoicePDF(c.Request().Context(), tenantID, id)
	if err != nil {
		return common.SendError(c, "invoice", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename()))
	return c.Blob(http.StatusOK, "application/pdf", doc.Content)
}

// ArchiveInvoicePDF handles POST /invoices/:id/archive. It stores the PDF and
// returns a time limited download link.
func (h *InvoiceHandlers) ArchiveInvoicePDF(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	url, err := h.invoiceService.ArchiveInvoicePDF(c.Request().Context(), tenantID, id)
	if err != nil {
		config.LogError(h.logger, "invoice", "ArchiveInvoicePDF", id, err)
		return common.SendError(c, "invoice", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

func statusNames() string {
	names := make([]string, 0, len(models.InvoiceStatuses()))
	for _, s := range models.InvoiceStatuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
