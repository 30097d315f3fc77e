package analytics

import (
	"sort"
	"time"

	"stockbill/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTopProducts is the number of products kept when the caller passes no limit.
const DefaultTopProducts = 5

// Aggregator derives report views from invoice rows already scoped to a tenant and range.
type Aggregator struct {
	pendingStatus string
}

// NewAggregator returns an aggregator that counts pendingStatus as pending in summaries.
// The stored status set has no PENDING value, so the default key matches nothing.
func NewAggregator(pendingStatus string) *Aggregator {
	if pendingStatus == "" {
		pendingStatus = "PENDING"
	}
	return &Aggregator{pendingStatus: pendingStatus}
}

func (a *Aggregator) PendingStatus() string {
	return a.pendingStatus
}

// Revenue sums the totals of PAID invoices. An empty set yields zero.
func Revenue(stats []models.InvoiceStat) decimal.Decimal {
	total := decimal.Zero
	for _, s := range stats {
		if s.Status == models.InvoiceStatusPaid {
			total = total.Add(s.TotalAmount)
		}
	}
	return total
}

// StatusDistribution counts invoices per status regardless of payment, ordered by status name.
func StatusDistribution(stats []models.InvoiceStat) []models.StatusCount {
	counts := make(map[string]int64)
	for _, s := range stats {
		counts[string(s.Status)]++
	}

	out := make([]models.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, models.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

// DailySalesTrend returns one point per day that has PAID revenue, oldest first.
func DailySalesTrend(stats []models.InvoiceStat) []models.DailySales {
	byDay := make(map[time.Time]decimal.Decimal)
	for _, s := range stats {
		if s.Status != models.InvoiceStatusPaid {
			continue
		}
		day := models.DateOnly(s.InvoiceDate)
		byDay[day] = byDay[day].Add(s.TotalAmount)
	}

	out := make([]models.DailySales, 0, len(byDay))
	for day, revenue := range byDay {
		out = append(out, models.DailySales{Date: day, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MonthlyBreakdown sums PAID revenue per calendar month, newest first.
func MonthlyBreakdown(stats []models.InvoiceStat) []models.MonthlySales {
	type month struct {
		year  int
		month time.Month
	}
	byMonth := make(map[month]decimal.Decimal)
	for _, s := range stats {
		if s.Status != models.InvoiceStatusPaid {
			continue
		}
		k := month{s.InvoiceDate.Year(), s.InvoiceDate.Month()}
		byMonth[k] = byMonth[k].Add(s.TotalAmount)
	}

	out := make([]models.MonthlySales, 0, len(byMonth))
	for k, revenue := range byMonth {
		out = append(out, models.MonthlySales{Year: k.year, Month: k.month, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

// ProductSales groups PAID item lines by product, highest revenue first.
// A limit of zero or less keeps every product.
func ProductSales(sales []models.ItemSale, limit int) []models.ProductSales {
	byProduct := make(map[uuid.UUID]*models.ProductSales)
	var order []uuid.UUID
	for _, s := range sales {
		p, ok := byProduct[s.ProductID]
		if !ok {
			p = &models.ProductSales{
				ProductID:     s.ProductID,
				ProductName:   s.ProductName,
				ProductCode:   s.ProductCode,
				TotalQuantity: decimal.Zero,
				TotalRevenue:  decimal.Zero,
			}
			byProduct[s.ProductID] = p
			order = append(order, s.ProductID)
		}
		p.TotalQuantity = p.TotalQuantity.Add(s.Quantity)
		p.TotalRevenue = p.TotalRevenue.Add(s.TotalPrice)
	}

	out := make([]models.ProductSales, 0, len(order))
	for _, id := range order {
		out = append(out, *byProduct[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].TotalRevenue.Cmp(out[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopProducts is ProductSales with the default limit applied when limit is not positive.
func TopProducts(sales []models.ItemSale, limit int) []models.ProductSales {
	if limit <= 0 {
		limit = DefaultTopProducts
	}
	return ProductSales(sales, limit)
}

// Summary builds the headline numbers from a status distribution and the range revenue.
func (a *Aggregator) Summary(distribution []models.StatusCount, revenue decimal.Decimal) models.ReportSummary {
	summary := models.ReportSummary{
		TotalRevenue:        revenue,
		AverageInvoiceValue: decimal.Zero,
	}
	for _, sc := range distribution {
		summary.TotalInvoices += sc.Count
		switch sc.Status {
		case string(models.InvoiceStatusPaid):
			summary.PaidInvoices += sc.Count
		case a.pendingStatus:
			summary.PendingInvoices += sc.Count
		}
	}
	if summary.TotalInvoices > 0 {
		summary.AverageInvoiceValue = revenue.DivRound(decimal.NewFromInt(summary.TotalInvoices), 2)
	}
	return summary
}

// Build assembles a report of the given type over stats and item sales.
// Top products are included only when sales is non-nil.
func (a *Aggregator) Build(reportType models.ReportType, tenantID uuid.UUID, start, end time.Time,
	stats []models.InvoiceStat, sales []models.ItemSale, topLimit int) *models.Report {
	revenue := Revenue(stats)
	distribution := StatusDistribution(stats)

	report := &models.Report{
		Type:               reportType,
		TenantID:           tenantID,
		StartDate:          start,
		EndDate:            end,
		TotalRevenue:       revenue,
		StatusDistribution: distribution,
		DailySales:         DailySalesTrend(stats),
		Summary:            a.Summary(distribution, revenue),
	}
	if reportType == models.ReportYearly {
		report.MonthlySales = MonthlyBreakdown(stats)
	}
	if sales != nil {
		report.TopProducts = TopProducts(sales, topLimit)
	}
	return report
}
