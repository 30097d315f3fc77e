package repositories

import (
	"context"
	"errors"
	"fmt"

	"stockbill/internal/common"
	"stockbill/internal/models"
	"stockbill/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Product, error)
	ListCodes(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, limit, offset int) ([]*models.Product, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Product, error)
	ListByCategory(ctx context.Context, tenantID uuid.UUID, category string, limit, offset int) ([]*models.Product, error)
	Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error)
	LowStock(ctx context.Context, tenantID uuid.UUID) ([]*models.Product, error)
	LowStockAll(ctx context.Context, limit int) ([]*models.Product, error)
	AdjustStock(ctx context.Context, tenantID, productID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

type productRepo struct {
	db database.DBTX
}

func NewProductRepo(db database.DBTX) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, tenant_id, code, name, description, price, mrp, quantity, min_stock_level, unit, active, category, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	product := &models.Product{}
	var unit string
	err := row.Scan(&product.ID, &product.TenantID, &product.Code, &product.Name, &product.Description,
		&product.Price, &product.MRP, &product.Quantity, &product.MinStockLevel, &unit, &product.Active,
		&product.Category, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	product.Unit = models.ParseUnitType(unit)
	return product, nil
}

func collectProducts(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, tenant_id, code, name, description, price, mrp, quantity, min_stock_level, unit, active, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, product.ID, product.TenantID, product.Code, product.Name, product.Description,
		product.Price, product.MRP, product.Quantity, product.MinStockLevel, string(product.Unit), product.Active,
		product.Category).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product code %s: %w", product.Code, common.ErrDuplicateProductCode)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// GetByID looks the product up without a tenant filter so callers can tell a foreign product from a missing one.
func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (r *productRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND code = $2`
	product, err := scanProduct(r.db.QueryRow(ctx, query, tenantID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product code %s: %w", code, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by code: %w", err)
	}
	return product, nil
}

func (r *productRepo) ListCodes(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error) {
	query := `SELECT code FROM products WHERE tenant_id = $1 AND code LIKE $2`
	rows, err := r.db.Query(ctx, query, tenantID, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list product codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, mrp = $4, quantity = $5, min_stock_level = $6, unit = $7, active = $8, category = $9, updated_at = NOW()
		WHERE tenant_id = $10 AND id = $11
	`
	tag, err := r.db.Exec(ctx, query, product.Name, product.Description, product.Price, product.MRP, product.Quantity,
		product.MinStockLevel, string(product.Unit), product.Active, product.Category, product.TenantID, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", product.ID, common.ErrNotFound)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM products WHERE tenant_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("product %s is referenced by invoices: %w", id, common.ErrInvalidState)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *productRepo) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE tenant_id = $1 AND (active OR NOT $2)
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, tenantID, activeOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return collectProducts(rows)
}

func (r *productRepo) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Product, error) {
	sql := `
		SELECT ` + productColumns + `
		FROM products
		WHERE tenant_id = $1 AND (
			name ILIKE $2 OR
			code ILIKE $2 OR
			COALESCE(description, '') ILIKE $2
		)
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, sql, tenantID, "%"+query+"%", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return collectProducts(rows)
}

func (r *productRepo) ListByCategory(ctx context.Context, tenantID uuid.UUID, category string, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE tenant_id = $1 AND category = $2
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, tenantID, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by category: %w", err)
	}
	return collectProducts(rows)
}

func (r *productRepo) Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT category
		FROM products
		WHERE tenant_id = $1 AND category IS NOT NULL AND category <> ''
		ORDER BY category
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *productRepo) LowStock(ctx context.Context, tenantID uuid.UUID) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE tenant_id = $1 AND active AND quantity <= min_stock_level
		ORDER BY quantity ASC, name ASC
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return collectProducts(rows)
}

// LowStockAll scans every tenant, for the alert job.
func (r *productRepo) LowStockAll(ctx context.Context, limit int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE active AND quantity <= min_stock_level
		ORDER BY tenant_id, quantity ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan low stock products: %w", err)
	}
	return collectProducts(rows)
}

// AdjustStock applies delta to the product's stock in a single statement and returns the new level.
// The row lock taken by the UPDATE serialises concurrent writers of the same product.
func (r *productRepo) AdjustStock(ctx context.Context, tenantID, productID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE products
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3
		RETURNING quantity
	`
	var quantity decimal.Decimal
	err := r.db.QueryRow(ctx, query, delta, tenantID, productID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("product %s: %w", productID, common.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("failed to adjust stock: %w", err)
	}
	return quantity, nil
}
