package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockbill/internal/caching"
	"stockbill/internal/common"
	"stockbill/internal/models"
	"stockbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	productCodePrefix   = "PRD"
	productCodeLockTTL  = 10 * time.Second
	productCodeAttempts = 5
)

type ProductService interface {
	Create(ctx context.Context, tenantID uuid.UUID, input *models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, input *models.ProductInput) (*models.Product, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, limit, offset int) ([]*models.Product, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Product, error)
	ListByCategory(ctx context.Context, tenantID uuid.UUID, category string, limit, offset int) ([]*models.Product, error)
	Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error)
	LowStock(ctx context.Context, tenantID uuid.UUID) ([]*models.Product, error)

	// Bulk operations
	BulkImport(ctx context.Context, tenantID uuid.UUID, rows []models.ProductImportRow) (*models.BulkImportResult, error)
}

type productService struct {
	productRepo  repositories.ProductRepository
	cacheService caching.CacheService
	locker       caching.Locker
	logger       logrus.FieldLogger
	cacheTTL     time.Duration
}

func NewProductService(productRepo repositories.ProductRepository, cacheService caching.CacheService, locker caching.Locker, logger logrus.FieldLogger, cacheTTL time.Duration) ProductService {
	return &productService{
		productRepo:  productRepo,
		cacheService: cacheService,
		locker:       locker,
		logger:       logger,
		cacheTTL:     cacheTTL,
	}
}

func validateProductInput(input *models.ProductInput) error {
	if input == nil {
		return common.NewValidationError("product", "is required")
	}
	if err := validateStruct(input); err != nil {
		return err
	}
	if strings.TrimSpace(input.Name) == "" {
		return common.NewValidationError("name", "is required")
	}
	if err := requirePositive("price", input.Price); err != nil {
		return err
	}
	if input.MRP != nil {
		if err := requireNonNegative("mrp", *input.MRP); err != nil {
			return err
		}
	}
	if err := requireNonNegative("quantity", input.Quantity); err != nil {
		return err
	}
	return requireNonNegative("min_stock_level", input.MinStockLevel)
}

func applyProductInput(product *models.Product, input *models.ProductInput) {
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Price = input.Price
	product.MRP = input.MRP
	product.Quantity = input.Quantity
	product.MinStockLevel = input.MinStockLevel
	product.Unit = models.ParseUnitType(input.Unit)
	product.Category = input.Category
	if input.Active != nil {
		product.Active = *input.Active
	}
}

// nextProductCode returns the lowest PRDnnnnnn code the tenant has not used yet.
func (s *productService) nextProductCode(ctx context.Context, tenantID uuid.UUID) (string, error) {
	codes, err := s.productRepo.ListCodes(ctx, tenantID, productCodePrefix)
	if err != nil {
		return "", fmt.Errorf("failed to list product codes: %w", err)
	}
	taken := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		taken[c] = struct{}{}
	}
	for n := 1; ; n++ {
		code := fmt.Sprintf("%s%06d", productCodePrefix, n)
		if _, ok := taken[code]; !ok {
			return code, nil
		}
	}
}

// insertWithCode assigns a fresh code and inserts the product. The tenant's code lock keeps
// concurrent creators apart; without it the unique index rejects a clash and the next free
// code is tried.
func (s *productService) insertWithCode(ctx context.Context, product *models.Product) error {
	logger := s.logger.WithField("tenant_id", product.TenantID)
	lock, err := s.locker.Obtain(ctx, "product-code:"+product.TenantID.String(), productCodeLockTTL)
	if err != nil {
		logger.WithError(err).Warn("product code lock unavailable, relying on unique index")
	} else {
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.WithError(err).Warn("failed to release product code lock")
			}
		}()
	}

	for attempt := 1; ; attempt++ {
		code, err := s.nextProductCode(ctx, product.TenantID)
		if err != nil {
			return err
		}
		product.Code = code
		err = s.productRepo.Create(ctx, product)
		if err == nil || !errors.Is(err, common.ErrDuplicateProductCode) || attempt == productCodeAttempts {
			return err
		}
		logger.WithField("code", code).Debug("product code taken concurrently, retrying")
	}
}

func (s *productService) Create(ctx context.Context, tenantID uuid.UUID, input *models.ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:       uuid.New(),
		TenantID: tenantID,
		Active:   true,
	}
	applyProductInput(product, input)

	if err := s.insertWithCode(ctx, product); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"code":      product.Code,
	}).Info("product created")
	return product, nil
}

// owned loads a product and checks it belongs to tenantID.
func (s *productService) owned(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.TenantID != tenantID {
		return nil, fmt.Errorf("product %s: %w", id, common.ErrPermissionDenied)
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, tenantID, id uuid.UUID, input *models.ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	// code and owner never change
	applyProductInput(product, input)

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.evict(ctx, tenantID, id)

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"code":      product.Code,
	}).Info("product updated")
	return product, nil
}

func (s *productService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	product, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.evict(ctx, tenantID, id)

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"code":      product.Code,
	}).Info("product deleted")
	return nil
}

func (s *productService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	if s.cacheService != nil {
		cached, err := s.cacheService.GetProduct(ctx, tenantID, id)
		if err != nil {
			// cache errors never fail the read
			s.logger.WithError(err).WithField("product_id", id).Warn("product cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	product, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.SetProduct(ctx, product, s.cacheTTL); err != nil {
			s.logger.WithError(err).WithField("product_id", id).Warn("failed to cache product")
		}
	}
	return product, nil
}

func (s *productService) evict(ctx context.Context, tenantID, id uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeleteProduct(ctx, tenantID, id); err != nil {
		s.logger.WithError(err).WithField("product_id", id).Warn("failed to evict cached product")
	}
}

func (s *productService) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.productRepo.List(ctx, tenantID, activeOnly, limit, offset)
}

func (s *productService) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Product, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	query = common.SanitizeSearchQuery(query)
	if query == "" {
		return s.productRepo.List(ctx, tenantID, false, limit, offset)
	}
	return s.productRepo.Search(ctx, tenantID, query, limit, offset)
}

func (s *productService) ListByCategory(ctx context.Context, tenantID uuid.UUID, category string, limit, offset int) ([]*models.Product, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, common.NewValidationError("category", "is required")
	}
	return s.productRepo.ListByCategory(ctx, tenantID, category, limit, offset)
}

func (s *productService) Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	return s.productRepo.Categories(ctx, tenantID)
}

func (s *productService) LowStock(ctx context.Context, tenantID uuid.UUID) ([]*models.Product, error) {
	return s.productRepo.LowStock(ctx, tenantID)
}

func importRowInput(row models.ProductImportRow) *models.ProductInput {
	active := true
	return &models.ProductInput{
		Name:          row.Name,
		Description:   row.Description,
		Price:         row.Price,
		MRP:           row.MRP,
		Quantity:      row.Quantity,
		MinStockLevel: row.MinStockLevel,
		Unit:          row.Unit,
		Category:      row.Category,
		Active:        &active,
	}
}

// BulkImport creates a product per row. A row that fails validation or insertion is
// recorded in Skipped and the batch carries on.
func (s *productService) BulkImport(ctx context.Context, tenantID uuid.UUID, rows []models.ProductImportRow) (*models.BulkImportResult, error) {
	result := &models.BulkImportResult{Created: []*models.Product{}}
	logger := s.logger.WithField("tenant_id", tenantID)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		product, err := s.Create(ctx, tenantID, importRowInput(row))
		if err != nil {
			logger.WithError(err).WithField("line", row.Line).Warn("skipping product import row")
			result.Skipped = append(result.Skipped, models.BulkOperationError{Line: row.Line, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, product)
	}

	logger.WithFields(logrus.Fields{
		"created": len(result.Created),
		"skipped": len(result.Skipped),
	}).Info("product import finished")
	return result, nil
}
