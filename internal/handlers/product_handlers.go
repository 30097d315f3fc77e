package handlers

import (
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"stockbill/internal/common"
	"stockbill/internal/importer"
	"stockbill/internal/models"
	"stockbill/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const maxImportSize = 10 << 20

// ProductHandlers handles HTTP requests for products
type ProductHandlers struct {
	productService services.ProductService
	logger         logrus.FieldLogger
}

// NewProductHandlers creates a new product handlers instance
func NewProductHandlers(productService services.ProductService, logger logrus.FieldLogger) *ProductHandlers {
	return &ProductHandlers{
		productService: productService,
		logger:         logger,
	}
}

// CreateProduct handles POST /products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	var input models.ProductInput
	if err := c.Bind(&input); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product, err := h.productService.Create(c.Request().Context(), tenantID, &input)
	if err != nil {
		return common.SendError(c, "product", err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Product created successfully",
		"product": product,
	})
}

// GetProduct handles GET /products/:id
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	product, err := h.productService.Get(c.Request().Context(), tenantID, id)
	if err != nil {
		return common.SendError(c, "product", err)
	}
	return c.JSON(http.StatusOK, product)
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var input models.ProductInput
	if err := c.Bind(&input); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product, err := h.productService.Update(c.Request().Context(), tenantID, id, &input)
	if err != nil {
		return common.SendError(c, "product", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct handles DELETE /products/:id
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if err := h.productService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return common.SendError(c, "product", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// ListProducts handles GET /products. ?category= narrows to one category,
// ?active=true hides inactive products.
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	ctx := c.Request().Context()

	var products []*models.Product
	if category := c.QueryParam("category"); category != "" {
		products, err = h.productService.ListByCategory(ctx, tenantID, category, limit, offset)
	} else {
		products, err = h.productService.List(ctx, tenantID, c.QueryParam("active") == "true", limit, offset)
	}
	if err != nil {
		return common.SendError(c, "products", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// SearchProducts handles GET /products/search?q=
func (h *ProductHandlers) SearchProducts(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return common.SendValidationError(c, "q", "is required")
	}
	limit, offset := pagination(c)

	products, err := h.productService.Search(c.Request().Context(), tenantID, query, limit, offset)
	if err != nil {
		return common.SendError(c, "products", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// LowStockProducts handles GET /products/low-stock
func (h *ProductHandlers) LowStockProducts(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	products, err := h.productService.LowStock(c.Request().Context(), tenantID)
	if err != nil {
		return common.SendError(c, "products", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// ListCategories handles GET /products/categories
func (h *ProductHandlers) ListCategories(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	categories, err := h.productService.Categories(c.Request().Context(), tenantID)
	if err != nil {
		return common.SendError(c, "categories", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"categories": categories})
}

type unitTypeResponse struct {
	Name        models.UnitType `json:"name"`
	Code        string          `json:"code"`
	DisplayName string          `json:"display_name"`
}

// ListUnitTypes handles GET /products/units
func (h *ProductHandlers) ListUnitTypes(c echo.Context) error {
	units := make([]unitTypeResponse, 0, len(models.UnitTypes()))
	for _, u := range models.UnitTypes() {
		units = append(units, unitTypeResponse{Name: u, Code: u.Code(), DisplayName: u.DisplayName()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"units": units})
}

// ImportProducts handles POST /products/import with a multipart "file" field
// holding a .csv or .xlsx product feed. Rows that fail to parse are reported
// alongside the rows the service skipped.
func (h *ProductHandlers) ImportProducts(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "is required")
	}
	if fileHeader.Size > maxImportSize {
		return common.SendValidationError(c, "file", "exceeds the 10MB limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return common.SendClientError(c, "Unable to read uploaded file")
	}
	defer file.Close()

	var (
		rows      []models.ProductImportRow
		rowErrors []models.BulkOperationError
	)
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".csv":
		rows, rowErrors, err = importer.ReadCSV(file)
	case ".xlsx":
		rows, rowErrors, err = importer.ReadXLSX(file)
	default:
		return common.SendValidationError(c, "file", "must be a .csv or .xlsx file")
	}
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	result, err := h.productService.BulkImport(c.Request().Context(), tenantID, rows)
	if err != nil {
		return common.SendError(c, "import", err)
	}

	result.Skipped = append(result.Skipped, rowErrors...)
	sort.SliceStable(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Line < result.Skipped[j].Line
	})

	fields := logrus.Fields{
		"tenant_id": tenantID,
		"file":      fileHeader.Filename,
		"created":   len(result.Created),
		"skipped":   len(result.Skipped),
	}
	if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
		fields["user_id"] = userID
	}
	h.logger.WithFields(fields).Info("product import finished")

	return c.JSON(http.StatusOK, result)
}
