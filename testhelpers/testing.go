// Package testhelpers provides a real PostgreSQL database for integration tests.
// Tests using it are skipped unless TEST_DATABASE_URL is set.
package testhelpers

import (
	"context"
	"os"
	"testing"

	"stockbill/internal/models"
	"stockbill/internal/repositories"
	"stockbill/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool *pgxpool.Pool
}

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema. The pool is
// closed after every other cleanup registered by the test has run.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	t.Cleanup(pool.Close)

	return &TestDB{Pool: pool}
}

// SetupTestTenant returns a fresh tenant id whose rows are removed when the test ends.
func SetupTestTenant(t *testing.T, db *TestDB) uuid.UUID {
	t.Helper()

	tenantID := uuid.New()
	t.Cleanup(func() {
		ctx := context.Background()
		for _, query := range []string{
			`DELETE FROM invoices WHERE tenant_id = $1`,
			`DELETE FROM invoice_sequences WHERE tenant_id = $1`,
			`DELETE FROM products WHERE tenant_id = $1`,
		} {
			if _, err := db.Pool.Exec(ctx, query, tenantID); err != nil {
				t.Logf("cleanup for tenant %s failed: %v", tenantID, err)
			}
		}
	})
	return tenantID
}

// SetupTestProduct inserts an active product with the given stock.
func SetupTestProduct(t *testing.T, db *TestDB, tenantID uuid.UUID, code, name string, unit models.UnitType, quantity string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Code:          code,
		Name:          name,
		Price:         decimal.NewFromInt(10),
		Quantity:      decimal.RequireFromString(quantity),
		MinStockLevel: decimal.NewFromInt(2),
		Unit:          unit,
		Active:        true,
	}
	if err := repositories.NewProductRepo(db.Pool).Create(context.Background(), product); err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return product
}
