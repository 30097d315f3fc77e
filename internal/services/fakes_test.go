package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"stockbill/internal/caching"
	"stockbill/internal/common"
	"stockbill/internal/models"
	"stockbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory TxStore. WithinTx snapshots all state and restores it when fn fails.
type memStore struct {
	products  map[uuid.UUID]models.Product
	invoices  map[uuid.UUID]models.Invoice
	items     map[uuid.UUID][]models.InvoiceItem
	sequences map[uuid.UUID]int64

	// failures injected by tests
	adjustErr        map[uuid.UUID]error
	invoiceInsertErr error
	txCount          int
	// codeClashes makes the next N product inserts lose to a concurrent writer
	codeClashes int
}

func newMemStore() *memStore {
	return &memStore{
		products:  map[uuid.UUID]models.Product{},
		invoices:  map[uuid.UUID]models.Invoice{},
		items:     map[uuid.UUID][]models.InvoiceItem{},
		sequences: map[uuid.UUID]int64{},
		adjustErr: map[uuid.UUID]error{},
	}
}

func (s *memStore) Products() repositories.ProductRepository          { return &memProducts{s} }
func (s *memStore) Invoices() repositories.InvoiceRepository          { return &memInvoices{s} }
func (s *memStore) Sequences() repositories.InvoiceSequenceRepository { return &memSequences{s} }

func (s *memStore) WithinTx(ctx context.Context, fn func(repositories.Store) error) error {
	s.txCount++
	products := make(map[uuid.UUID]models.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	invoices := make(map[uuid.UUID]models.Invoice, len(s.invoices))
	for k, v := range s.invoices {
		invoices[k] = v
	}
	items := make(map[uuid.UUID][]models.InvoiceItem, len(s.items))
	for k, v := range s.items {
		items[k] = append([]models.InvoiceItem(nil), v...)
	}
	sequences := make(map[uuid.UUID]int64, len(s.sequences))
	for k, v := range s.sequences {
		sequences[k] = v
	}

	if err := fn(s); err != nil {
		s.products, s.invoices, s.items, s.sequences = products, invoices, items, sequences
		return err
	}
	return nil
}

func (s *memStore) addProduct(tenantID uuid.UUID, name string, unit models.UnitType, qty string) models.Product {
	p := models.Product{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Code:          fmt.Sprintf("PRD%06d", len(s.products)+1),
		Name:          name,
		Price:         decimal.RequireFromString("10.00"),
		Quantity:      decimal.RequireFromString(qty),
		MinStockLevel: decimal.NewFromInt(5),
		Unit:          unit,
		Active:        true,
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) stock(id uuid.UUID) string {
	return s.products[id].Quantity.String()
}

type memProducts struct{ s *memStore }

func (r *memProducts) Create(ctx context.Context, product *models.Product) error {
	if r.s.codeClashes > 0 {
		r.s.codeClashes--
		id := uuid.New()
		r.s.products[id] = models.Product{ID: id, TenantID: product.TenantID, Code: product.Code, Name: "concurrent"}
		return fmt.Errorf("product code %s: %w", product.Code, common.ErrDuplicateProductCode)
	}
	for _, p := range r.s.products {
		if p.TenantID == product.TenantID && p.Code == product.Code {
			return fmt.Errorf("product code %s: %w", product.Code, common.ErrDuplicateProductCode)
		}
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	r.s.products[product.ID] = *product
	return nil
}

func (r *memProducts) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, common.ErrNotFound)
	}
	return &p, nil
}

func (r *memProducts) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Product, error) {
	for _, p := range r.s.products {
		if p.TenantID == tenantID && p.Code == code {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", code, common.ErrNotFound)
}

func (r *memProducts) ListCodes(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error) {
	var codes []string
	for _, p := range r.s.products {
		if p.TenantID == tenantID && strings.HasPrefix(p.Code, prefix) {
			codes = append(codes, p.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *memProducts) Update(ctx context.Context, product *models.Product) error {
	if _, ok := r.s.products[product.ID]; !ok {
		return fmt.Errorf("product %s: %w", product.ID, common.ErrNotFound)
	}
	r.s.products[product.ID] = *product
	return nil
}

func (r *memProducts) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	for _, items := range r.s.items {
		for _, it := range items {
			if it.ProductID == id {
				return fmt.Errorf("product %s is invoiced: %w", id, common.ErrInvalidState)
			}
		}
	}
	delete(r.s.products, id)
	return nil
}

func (r *memProducts) filter(tenantID uuid.UUID, keep func(models.Product) bool) []*models.Product {
	var out []*models.Product
	for _, p := range r.s.products {
		if p.TenantID == tenantID && keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *memProducts) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	return r.filter(tenantID, func(p models.Product) bool { return !activeOnly || p.Active }), nil
}

func (r *memProducts) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Product, error) {
	q := strings.ToLower(query)
	return r.filter(tenantID, func(p models.Product) bool { return strings.Contains(strings.ToLower(p.Name), q) }), nil
}

func (r *memProducts) ListByCategory(ctx context.Context, tenantID uuid.UUID, category string, limit, offset int) ([]*models.Product, error) {
	return r.filter(tenantID, func(p models.Product) bool { return common.SafeString(p.Category) == category }), nil
}

func (r *memProducts) Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	return nil, nil
}

func (r *memProducts) LowStock(ctx context.Context, tenantID uuid.UUID) ([]*models.Product, error) {
	return r.filter(tenantID, func(p models.Product) bool { return p.IsLowStock() }), nil
}

func (r *memProducts) LowStockAll(ctx context.Context, limit int) ([]*models.Product, error) {
	return nil, nil
}

func (r *memProducts) AdjustStock(ctx context.Context, tenantID, productID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := r.s.adjustErr[productID]; err != nil {
		return decimal.Zero, err
	}
	p, ok := r.s.products[productID]
	if !ok || p.TenantID != tenantID {
		return decimal.Zero, fmt.Errorf("product %s: %w", productID, common.ErrNotFound)
	}
	p.Quantity = p.Quantity.Add(delta)
	r.s.products[productID] = p
	return p.Quantity, nil
}

type memInvoices struct{ s *memStore }

func (r *memInvoices) Create(ctx context.Context, invoice *models.Invoice) error {
	if r.s.invoiceInsertErr != nil {
		return r.s.invoiceInsertErr
	}
	for _, inv := range r.s.invoices {
		if inv.TenantID == invoice.TenantID && inv.InvoiceNumber == invoice.InvoiceNumber {
			return fmt.Errorf("invoice number %s: %w", invoice.InvoiceNumber, common.ErrDuplicateInvoiceNumber)
		}
	}
	stored := *invoice
	stored.Items = nil
	r.s.invoices[invoice.ID] = stored
	return nil
}

func (r *memInvoices) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return &inv, nil
}

func (r *memInvoices) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *memInvoices) UpdateHeader(ctx context.Context, invoice *models.Invoice) error {
	if _, ok := r.s.invoices[invoice.ID]; !ok {
		return fmt.Errorf("invoice %s: %w", invoice.ID, common.ErrNotFound)
	}
	stored := *invoice
	stored.Items = nil
	r.s.invoices[invoice.ID] = stored
	return nil
}

func (r *memInvoices) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	delete(r.s.invoices, id)
	delete(r.s.items, id)
	return nil
}

func (r *memInvoices) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status models.InvoiceStatus) error {
	inv, ok := r.s.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	inv.Status = status
	r.s.invoices[id] = inv
	return nil
}

func (r *memInvoices) filter(tenantID uuid.UUID, keep func(models.Invoice) bool) []*models.Invoice {
	var out []*models.Invoice
	for _, inv := range r.s.invoices {
		if inv.TenantID == tenantID && keep(inv) {
			inv := inv
			out = append(out, &inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber > out[j].InvoiceNumber })
	return out
}

func (r *memInvoices) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	return r.filter(tenantID, func(models.Invoice) bool { return true }), nil
}

func (r *memInvoices) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Invoice, error) {
	q := strings.ToLower(query)
	return r.filter(tenantID, func(inv models.Invoice) bool {
		return strings.Contains(strings.ToLower(inv.CustomerName), q)
	}), nil
}

func (r *memInvoices) ListByStatus(ctx context.Context, tenantID uuid.UUID, status models.InvoiceStatus, limit, offset int) ([]*models.Invoice, error) {
	return r.filter(tenantID, func(inv models.Invoice) bool { return inv.Status == status }), nil
}

func (r *memInvoices) ListOverdue(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]*models.Invoice, error) {
	return r.filter(tenantID, func(inv models.Invoice) bool { return inv.IsOverdue(today) }), nil
}

func (r *memInvoices) InsertItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error {
	r.s.items[invoiceID] = append([]models.InvoiceItem(nil), items...)
	return nil
}

func (r *memInvoices) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	items := append([]models.InvoiceItem(nil), r.s.items[invoiceID]...)
	for i := range items {
		p := r.s.products[items[i].ProductID]
		items[i].ProductName, items[i].ProductCode, items[i].ProductUnit = p.Name, p.Code, p.Unit
	}
	return items, nil
}

func (r *memInvoices) DeleteItems(ctx context.Context, invoiceID uuid.UUID) error {
	delete(r.s.items, invoiceID)
	return nil
}

type memSequences struct{ s *memStore }

func (r *memSequences) Next(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	r.s.sequences[tenantID]++
	return r.s.sequences[tenantID], nil
}

// fakeLocker grants every lock and counts them.
type fakeLocker struct {
	obtained int
	released int
	err      error
}

type fakeLock struct{ l *fakeLocker }

func (l *fakeLock) Release(ctx context.Context) error {
	l.l.released++
	return nil
}

func (l *fakeLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (caching.Lock, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.obtained++
	return &fakeLock{l}, nil
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCacheService) SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error {
	args := m.Called(ctx, product, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteProduct(ctx context.Context, tenantID, productID uuid.UUID) error {
	args := m.Called(ctx, tenantID, productID)
	return args.Error(0)
}

func (m *MockCacheService) GetReport(ctx context.Context, tenantID uuid.UUID, reportKey string) (*models.Report, error) {
	args := m.Called(ctx, tenantID, reportKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockCacheService) SetReport(ctx context.Context, tenantID uuid.UUID, reportKey string, report *models.Report, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, reportKey, report, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateTenantReports(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) UploadDocument(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockMinioService) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) DeleteDocument(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMinioService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// stubRenderer returns a fixed document or error.
type stubRenderer struct {
	content []byte
	err     error
	calls   int
}

func (r *stubRenderer) RenderInvoice(invoice *models.Invoice) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if invoice == nil {
		return nil, errors.New("invoice is required")
	}
	return r.content, nil
}
