package analytics

import (
	"testing"
	"time"

	"stockbill/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func stat(date time.Time, status models.InvoiceStatus, total string) models.InvoiceStat {
	return models.InvoiceStat{ID: uuid.New(), InvoiceDate: date, Status: status, TotalAmount: dec(total)}
}

func TestRevenue_EmptyIsZero(t *testing.T) {
	assert.True(t, Revenue(nil).IsZero())
	assert.True(t, Revenue([]models.InvoiceStat{stat(day(2024, 1, 5), models.InvoiceStatusDraft, "20.50")}).IsZero())
}

func TestRevenue_OnlyPaid(t *testing.T) {
	stats := []models.InvoiceStat{
		stat(day(2024, 1, 5), models.InvoiceStatusPaid, "20.50"),
		stat(day(2024, 1, 6), models.InvoiceStatusPaid, "9.50"),
		stat(day(2024, 1, 6), models.InvoiceStatusSent, "100.00"),
	}
	assert.Equal(t, "30.00", Revenue(stats).StringFixed(2))
}

func TestStatusDistribution_OrderedAndUnfiltered(t *testing.T) {
	stats := []models.InvoiceStat{
		stat(day(2024, 1, 5), models.InvoiceStatusSent, "1"),
		stat(day(2024, 1, 5), models.InvoiceStatusPaid, "1"),
		stat(day(2024, 1, 6), models.InvoiceStatusDraft, "1"),
		stat(day(2024, 1, 7), models.InvoiceStatusPaid, "1"),
	}
	assert.Equal(t, []models.StatusCount{
		{Status: "DRAFT", Count: 1},
		{Status: "PAID", Count: 2},
		{Status: "SENT", Count: 1},
	}, StatusDistribution(stats))
}

func TestDailySalesTrend(t *testing.T) {
	stats := []models.InvoiceStat{
		stat(day(2024, 1, 7), models.InvoiceStatusPaid, "5.00"),
		stat(day(2024, 1, 5), models.InvoiceStatusPaid, "20.50"),
		stat(day(2024, 1, 5), models.InvoiceStatusPaid, "1.50"),
		stat(day(2024, 1, 6), models.InvoiceStatusDraft, "99.00"),
	}

	trend := DailySalesTrend(stats)
	require.Len(t, trend, 2)
	assert.Equal(t, day(2024, 1, 5), trend[0].Date)
	assert.Equal(t, "22.00", trend[0].Revenue.StringFixed(2))
	assert.Equal(t, day(2024, 1, 7), trend[1].Date)
}

func TestMonthlyBreakdown_NewestFirst(t *testing.T) {
	stats := []models.InvoiceStat{
		stat(day(2024, 1, 5), models.InvoiceStatusPaid, "10"),
		stat(day(2024, 3, 1), models.InvoiceStatusPaid, "30"),
		stat(day(2024, 3, 9), models.InvoiceStatusPaid, "5"),
		stat(day(2024, 2, 1), models.InvoiceStatusCancelled, "7"),
	}

	months := MonthlyBreakdown(stats)
	require.Len(t, months, 2)
	assert.Equal(t, time.March, months[0].Month)
	assert.Equal(t, "35", months[0].Revenue.String())
	assert.Equal(t, time.January, months[1].Month)
}

func TestTopProducts_GroupsSortsAndLimits(t *testing.T) {
	rice, oil, salt := uuid.New(), uuid.New(), uuid.New()
	sales := []models.ItemSale{
		{ProductID: rice, ProductName: "Rice", Quantity: dec("2"), TotalPrice: dec("20.00")},
		{ProductID: oil, ProductName: "Oil", Quantity: dec("1"), TotalPrice: dec("150.00")},
		{ProductID: rice, ProductName: "Rice", Quantity: dec("1.5"), TotalPrice: dec("15.00")},
		{ProductID: salt, ProductName: "Salt", Quantity: dec("7"), TotalPrice: dec("35.00")},
	}

	top := TopProducts(sales, 2)
	require.Len(t, top, 2)
	assert.Equal(t, oil, top[0].ProductID)
	assert.Equal(t, "Rice", top[1].ProductName)
	assert.Equal(t, "3.5", top[1].TotalQuantity.String())
	assert.Equal(t, "35.00", top[1].TotalRevenue.StringFixed(2))
}

func TestTopProducts_DefaultLimit(t *testing.T) {
	var sales []models.ItemSale
	for i := 0; i < 8; i++ {
		sales = append(sales, models.ItemSale{ProductID: uuid.New(), ProductName: "p", Quantity: dec("1"), TotalPrice: decimal.NewFromInt(int64(i))})
	}
	assert.Len(t, TopProducts(sales, 0), DefaultTopProducts)
	assert.Len(t, ProductSales(sales, 0), 8)
}

func TestSummary_AverageRoundsHalfUp(t *testing.T) {
	a := NewAggregator("")
	dist := []models.StatusCount{{Status: "PAID", Count: 2}, {Status: "SENT", Count: 1}}

	summary := a.Summary(dist, dec("10.00"))
	assert.Equal(t, int64(3), summary.TotalInvoices)
	assert.Equal(t, int64(2), summary.PaidInvoices)
	assert.Equal(t, "3.33", summary.AverageInvoiceValue.StringFixed(2))

	summary = a.Summary([]models.StatusCount{{Status: "PAID", Count: 8}}, dec("0.20"))
	assert.Equal(t, "0.03", summary.AverageInvoiceValue.StringFixed(2))
}

func TestSummary_ZeroInvoices(t *testing.T) {
	summary := NewAggregator("").Summary(nil, decimal.Zero)
	assert.Equal(t, int64(0), summary.TotalInvoices)
	assert.True(t, summary.AverageInvoiceValue.IsZero())
}

// The default pending key is not a stored status, so open invoices never count as pending.
func TestSummary_DefaultPendingKeyMatchesNoDeclaredStatus(t *testing.T) {
	a := NewAggregator("")
	assert.Equal(t, "PENDING", a.PendingStatus())

	_, declared := models.ParseInvoiceStatus(a.PendingStatus())
	assert.False(t, declared)

	dist := []models.StatusCount{{Status: "DRAFT", Count: 4}, {Status: "SENT", Count: 3}}
	assert.Equal(t, int64(0), a.Summary(dist, decimal.Zero).PendingInvoices)

	assert.Equal(t, int64(3), NewAggregator("SENT").Summary(dist, decimal.Zero).PendingInvoices)
}

func TestBuild_SinglePaidInvoice(t *testing.T) {
	productID := uuid.New()
	tenantID := uuid.New()
	stats := []models.InvoiceStat{stat(day(2024, 1, 5), models.InvoiceStatusPaid, "20.50")}
	sales := []models.ItemSale{{ProductID: productID, ProductName: "Rice", InvoiceDate: day(2024, 1, 5), Quantity: dec("2"), TotalPrice: dec("20.00")}}

	report := NewAggregator("").Build(models.ReportYearly, tenantID, day(2024, 1, 1), day(2024, 12, 31), stats, sales, 0)

	assert.Equal(t, tenantID, report.TenantID)
	assert.Equal(t, "20.50", report.TotalRevenue.StringFixed(2))
	assert.Equal(t, []models.StatusCount{{Status: "PAID", Count: 1}}, report.StatusDistribution)
	require.Len(t, report.DailySales, 1)
	require.Len(t, report.MonthlySales, 1)
	require.Len(t, report.TopProducts, 1)
	assert.Equal(t, "20.50", report.Summary.AverageInvoiceValue.StringFixed(2))
}

func TestBuild_NoSalesNoTopProducts(t *testing.T) {
	report := NewAggregator("").Build(models.ReportDaily, uuid.New(), day(2024, 1, 5), day(2024, 1, 5), nil, nil, 5)
	assert.Nil(t, report.TopProducts)
	assert.Nil(t, report.MonthlySales)
	assert.True(t, report.TotalRevenue.IsZero())
}
