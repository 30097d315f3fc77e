package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"stockbill/internal/caching"
	"stockbill/internal/common"
	"stockbill/internal/exporters"
	"stockbill/internal/models"
	"stockbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const invoiceLinkExpiry = 24 * time.Hour

// InvoiceServiceInterface defines the interface for invoice service
type InvoiceServiceInterface interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *models.InvoiceRequest) (*models.Invoice, error)
	Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req *models.InvoiceRequest) (*models.Invoice, error)
	Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error
	Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Invoice, error)
	ListByStatus(ctx context.Context, tenantID uuid.UUID, status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error)
	ListOverdue(ctx context.Context, tenantID uuid.UUID) ([]*models.Invoice, error)
	UpdateStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status models.InvoiceStatus) (*models.Invoice, error)

	// Documents
	GenerateInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceDocument, error)
	ArchiveInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (string, error)
}

// InvoiceDocument is a rendered invoice ready to be streamed.
type InvoiceDocument struct {
	InvoiceNumber string
	Content       []byte
}

func (d *InvoiceDocument) Filename() string {
	return d.InvoiceNumber + ".pdf"
}

func archiveObjectName(tenantID uuid.UUID, invoiceNumber string) string {
	return fmt.Sprintf("%s/%s.pdf", tenantID, invoiceNumber)
}

type invoiceService struct {
	store        repositories.TxStore
	reconciler   *StockReconciler
	numberer     *InvoiceNumberer
	renderer     exporters.InvoiceRenderer
	minioService MinioService
	cacheService caching.CacheService
	logger       logrus.FieldLogger
	now          func() time.Time
}

// NewInvoiceService creates a new invoice service. minioService and cacheService may be nil.
func NewInvoiceService(store repositories.TxStore, reconciler *StockReconciler, numberer *InvoiceNumberer, renderer exporters.InvoiceRenderer, minioService MinioService, cacheService caching.CacheService, logger logrus.FieldLogger) InvoiceServiceInterface {
	return &invoiceService{
		store:        store,
		reconciler:   reconciler,
		numberer:     numberer,
		renderer:     renderer,
		minioService: minioService,
		cacheService: cacheService,
		logger:       logger,
		now:          time.Now,
	}
}

func validateInvoiceRequest(req *models.InvoiceRequest) error {
	if req == nil {
		return common.NewValidationError("invoice", "is required")
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.DueDate != nil && models.DateOnly(*req.DueDate).Before(models.DateOnly(req.InvoiceDate)) {
		return common.NewValidationError("due_date", "must not be before invoice_date")
	}
	if req.TaxAmount != nil {
		if err := requireNonNegative("tax_amount", *req.TaxAmount); err != nil {
			return err
		}
	}
	if req.DiscountAmount != nil {
		if err := requireNonNegative("discount_amount", *req.DiscountAmount); err != nil {
			return err
		}
	}
	if req.Status != nil && !req.Status.IsValid() {
		return common.NewValidationError("status", "is not a valid invoice status")
	}
	for i, item := range req.Items {
		if err := requirePositive(fmt.Sprintf("items[%d].quantity", i), item.Quantity); err != nil {
			return err
		}
		if err := requirePositive(fmt.Sprintf("items[%d].unit_price", i), item.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

// applyInvoiceRequest copies the header fields. Number, id, owner and timestamps are left alone.
func applyInvoiceRequest(invoice *models.Invoice, req *models.InvoiceRequest) {
	invoice.InvoiceDate = models.DateOnly(req.InvoiceDate)
	invoice.DueDate = nil
	if req.DueDate != nil {
		due := models.DateOnly(*req.DueDate)
		invoice.DueDate = &due
	}
	invoice.CustomerName = req.CustomerName
	invoice.CustomerEmail = req.CustomerEmail
	invoice.CustomerPhone = req.CustomerPhone
	invoice.CustomerAddr = req.CustomerAddr
	invoice.Notes = req.Notes

	invoice.TaxAmount = decimal.Zero
	if req.TaxAmount != nil {
		invoice.TaxAmount = *req.TaxAmount
	}
	invoice.DiscountAmount = decimal.Zero
	if req.DiscountAmount != nil {
		invoice.DiscountAmount = *req.DiscountAmount
	}
	if req.Status != nil {
		invoice.Status = *req.Status
	}
}

// buildItems resolves every requested product and checks ownership and unit rules.
// It does not touch stock, so a rejected request leaves nothing to undo.
func (s *invoiceService) buildItems(ctx context.Context, products repositories.ProductRepository, tenantID, invoiceID uuid.UUID, reqs []models.InvoiceItemRequest) ([]models.InvoiceItem, error) {
	items := make([]models.InvoiceItem, 0, len(reqs))
	for i, req := range reqs {
		product, err := products.GetByID(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if product.TenantID != tenantID {
			return nil, fmt.Errorf("product %s: %w", req.ProductID, common.ErrPermissionDenied)
		}
		if !product.Unit.ValidateQuantity(req.Quantity) {
			return nil, common.NewValidationError(fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("%s is not allowed for unit %s", req.Quantity, product.Unit.DisplayName()))
		}

		item := models.NewInvoiceItem(product.ID, req.Quantity, req.UnitPrice)
		item.InvoiceID = invoiceID
		item.Description = req.Description
		item.Position = i
		item.ProductName = product.Name
		item.ProductCode = product.Code
		item.ProductUnit = product.Unit
		items = append(items, item)
	}
	return items, nil
}

// lockOwned locks the invoice row and rejects foreign or PAID invoices.
func lockOwned(ctx context.Context, invoices repositories.InvoiceRepository, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := invoices.GetByIDForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.TenantID != tenantID {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, common.ErrPermissionDenied)
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, fmt.Errorf("invoice %s is paid: %w", invoice.InvoiceNumber, common.ErrInvalidState)
	}
	return invoice, nil
}

func (s *invoiceService) Create(ctx context.Context, tenantID uuid.UUID, req *models.InvoiceRequest) (*models.Invoice, error) {
	if err := validateInvoiceRequest(req); err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:       uuid.New(),
		TenantID: tenantID,
		Status:   models.InvoiceStatusDraft,
	}
	applyInvoiceRequest(invoice, req)

	var touched []uuid.UUID
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		items, err := s.buildItems(ctx, tx.Products(), tenantID, invoice.ID, req.Items)
		if err != nil {
			return err
		}

		number, err := s.numberer.Next(ctx, tx.Sequences(), tenantID)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		invoice.Items = items
		invoice.CalculateTotals()

		if touched, err = s.reconciler.Consume(ctx, tx.Products(), tenantID, items); err != nil {
			return err
		}
		if err := tx.Invoices().Create(ctx, invoice); err != nil {
			return err
		}
		return tx.Invoices().InsertItems(ctx, invoice.ID, invoice.Items)
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, tenantID, touched)
	s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"invoice_number": invoice.InvoiceNumber,
		"total":          invoice.TotalAmount.StringFixed(2),
	}).Info("invoice created")
	return invoice, nil
}

func (s *invoiceService) Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req *models.InvoiceRequest) (*models.Invoice, error) {
	if err := validateInvoiceRequest(req); err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	var touched []uuid.UUID
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		var err error
		if invoice, err = lockOwned(ctx, tx.Invoices(), tenantID, invoiceID); err != nil {
			return err
		}
		oldItems, err := tx.Invoices().GetItems(ctx, invoiceID)
		if err != nil {
			return err
		}
		newItems, err := s.buildItems(ctx, tx.Products(), tenantID, invoiceID, req.Items)
		if err != nil {
			return err
		}

		if touched, err = s.reconciler.Replace(ctx, tx.Products(), tenantID, oldItems, newItems); err != nil {
			return err
		}
		if err := tx.Invoices().DeleteItems(ctx, invoiceID); err != nil {
			return err
		}

		applyInvoiceRequest(invoice, req)
		invoice.Items = newItems
		invoice.CalculateTotals()

		if err := tx.Invoices().UpdateHeader(ctx, invoice); err != nil {
			return err
		}
		return tx.Invoices().InsertItems(ctx, invoiceID, newItems)
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, tenantID, touched)
	s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"invoice_number": invoice.InvoiceNumber,
		"total":          invoice.TotalAmount.StringFixed(2),
	}).Info("invoice updated")
	return invoice, nil
}

func (s *invoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	var invoice *models.Invoice
	var touched []uuid.UUID
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		var err error
		if invoice, err = lockOwned(ctx, tx.Invoices(), tenantID, invoiceID); err != nil {
			return err
		}
		items, err := tx.Invoices().GetItems(ctx, invoiceID)
		if err != nil {
			return err
		}
		if touched, err = s.reconciler.Restore(ctx, tx.Products(), tenantID, items); err != nil {
			return err
		}
		// items go with the invoice row
		return tx.Invoices().Delete(ctx, tenantID, invoiceID)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, tenantID, touched)
	logger := s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"invoice_number": invoice.InvoiceNumber,
	})
	if s.minioService != nil {
		object := archiveObjectName(tenantID, invoice.InvoiceNumber)
		if err := s.minioService.DeleteDocument(ctx, object); err != nil {
			logger.WithError(err).WithField("object", object).Warn("failed to remove archived invoice pdf")
		}
	}
	logger.Info("invoice deleted")
	return nil
}

func (s *invoiceService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoices := s.store.Invoices()
	invoice, err := invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.TenantID != tenantID {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, common.ErrPermissionDenied)
	}
	if invoice.Items, err = invoices.GetItems(ctx, invoiceID); err != nil {
		return nil, err
	}
	return invoice, nil
}

// List returns invoice headers, newest first. Items are loaded by Get.
func (s *invoiceService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.store.Invoices().List(ctx, tenantID, limit, offset)
}

func (s *invoiceService) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Invoice, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	query = common.SanitizeSearchQuery(query)
	if query == "" {
		return s.store.Invoices().List(ctx, tenantID, limit, offset)
	}
	return s.store.Invoices().Search(ctx, tenantID, query, limit, offset)
}

func (s *invoiceService) ListByStatus(ctx context.Context, tenantID uuid.UUID, status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error) {
	if !status.IsValid() {
		return nil, common.NewValidationError("status", "is not a valid invoice status")
	}
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.store.Invoices().ListByStatus(ctx, tenantID, status, limit, offset)
}

// ListOverdue returns SENT invoices whose due date is before today.
func (s *invoiceService) ListOverdue(ctx context.Context, tenantID uuid.UUID) ([]*models.Invoice, error) {
	return s.store.Invoices().ListOverdue(ctx, tenantID, models.DateOnly(s.now()))
}

// UpdateStatus overwrites the status without transition rules; PAID can be set and unset here.
func (s *invoiceService) UpdateStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status models.InvoiceStatus) (*models.Invoice, error) {
	if !status.IsValid() {
		return nil, common.NewValidationError("status", "is not a valid invoice status")
	}

	invoices := s.store.Invoices()
	invoice, err := invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.TenantID != tenantID {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, common.ErrPermissionDenied)
	}
	if err := invoices.UpdateStatus(ctx, tenantID, invoiceID, status); err != nil {
		return nil, err
	}
	previous := invoice.Status
	invoice.Status = status

	s.afterMutation(ctx, tenantID, nil)
	s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"invoice_number": invoice.InvoiceNumber,
		"from":           previous,
		"to":             status,
	}).Info("invoice status updated")
	return invoice, nil
}

func (s *invoiceService) GenerateInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceDocument, error) {
	invoice, err := s.Get(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	content, err := s.renderer.RenderInvoice(invoice)
	if err != nil {
		s.logger.WithError(err).WithField("invoice_number", invoice.InvoiceNumber).Error("failed to render invoice")
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return &InvoiceDocument{InvoiceNumber: invoice.InvoiceNumber, Content: content}, nil
}

// ArchiveInvoicePDF stores the rendered invoice under <tenant>/<number>.pdf and returns a download link.
func (s *invoiceService) ArchiveInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (string, error) {
	if s.minioService == nil {
		return "", errors.New("document storage is not configured")
	}
	doc, err := s.GenerateInvoicePDF(ctx, tenantID, invoiceID)
	if err != nil {
		return "", err
	}

	objectName := archiveObjectName(tenantID, doc.InvoiceNumber)
	if err := s.minioService.UploadDocument(ctx, objectName, bytes.NewReader(doc.Content), int64(len(doc.Content)), "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to archive invoice: %w", err)
	}
	url, err := s.minioService.GetPresignedURL(ctx, objectName, invoiceLinkExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign invoice link: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"invoice_number": doc.InvoiceNumber,
		"object":         objectName,
	}).Info("invoice archived")
	return url, nil
}

// afterMutation drops cached reports and any cached products whose stock moved.
func (s *invoiceService) afterMutation(ctx context.Context, tenantID uuid.UUID, products []uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	logger := s.logger.WithField("tenant_id", tenantID)
	if err := s.cacheService.InvalidateTenantReports(ctx, tenantID); err != nil {
		logger.WithError(err).Warn("failed to invalidate cached reports")
	}
	for _, id := range products {
		if err := s.cacheService.DeleteProduct(ctx, tenantID, id); err != nil {
			logger.WithError(err).WithField("product_id", id).Warn("failed to evict cached product")
		}
	}
}
