package exporters

import (
	"bytes"
	"fmt"

	"stockbill/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ReportExporter renders a finished report.
type ReportExporter interface {
	ReportPDF(report *models.Report) ([]byte, error)
	ReportExcel(report *models.Report) ([]byte, error)
}

type reportExporter struct{}

func NewReportExporter() ReportExporter {
	return &reportExporter{}
}

func reportTitle(report *models.Report) string {
	return fmt.Sprintf("%s report %s to %s", report.Type,
		report.StartDate.Format("2006-01-02"), report.EndDate.Format("2006-01-02"))
}

func (e *reportExporter) ReportPDF(report *models.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, reportTitle(report))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Summary")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	summary := [][2]string{
		{"Total revenue", report.TotalRevenue.StringFixed(2)},
		{"Total invoices", fmt.Sprintf("%d", report.Summary.TotalInvoices)},
		{"Paid invoices", fmt.Sprintf("%d", report.Summary.PaidInvoices)},
		{"Pending invoices", fmt.Sprintf("%d", report.Summary.PendingInvoices)},
		{"Average invoice value", report.Summary.AverageInvoiceValue.StringFixed(2)},
	}
	for _, row := range summary {
		pdf.CellFormat(70, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "1", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	pdf.Ln(6)

	table := func(title string, headers []string, widths []float64, rows [][]string) {
		if len(rows) == 0 {
			return
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 7, title)
		pdf.Ln(7)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 9)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 9)
		for _, row := range rows {
			for i, cell := range row {
				align := "R"
				if i == 0 {
					align = "L"
				}
				pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, align, false, 0, "")
			}
			pdf.Ln(6)
		}
		pdf.Ln(6)
	}

	table("Status distribution", []string{"Status", "Count"}, []float64{70, 40}, statusRows(report))
	table("Daily sales", []string{"Date", "Revenue"}, []float64{70, 40}, dailyRows(report))
	table("Monthly sales", []string{"Month", "Revenue"}, []float64{70, 40}, monthlyRows(report))
	table("Top products", []string{"Product", "Code", "Quantity", "Revenue"}, []float64{70, 30, 30, 40}, productRows(report.TopProducts))
	table("Product performance", []string{"Product", "Code", "Quantity", "Revenue"}, []float64{70, 30, 30, 40}, productRows(report.ProductPerformance))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) ReportExcel(report *models.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{reportTitle(report)},
		{},
		{"Total revenue", report.TotalRevenue.InexactFloat64()},
		{"Total invoices", report.Summary.TotalInvoices},
		{"Paid invoices", report.Summary.PaidInvoices},
		{"Pending invoices", report.Summary.PendingInvoices},
		{"Average invoice value", report.Summary.AverageInvoiceValue.InexactFloat64()},
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A1", bold); err != nil {
		return nil, err
	}

	sheets := []struct {
		name    string
		headers []interface{}
		rows    [][]string
	}{
		{"Status", []interface{}{"Status", "Count"}, statusRows(report)},
		{"Daily Sales", []interface{}{"Date", "Revenue"}, dailyRows(report)},
		{"Monthly Sales", []interface{}{"Month", "Revenue"}, monthlyRows(report)},
		{"Top Products", []interface{}{"Product", "Code", "Quantity", "Revenue"}, productRows(report.TopProducts)},
		{"Product Performance", []interface{}{"Product", "Code", "Quantity", "Revenue"}, productRows(report.ProductPerformance)},
	}
	for _, sheet := range sheets {
		if len(sheet.rows) == 0 {
			continue
		}
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, err
		}
		data := [][]interface{}{sheet.headers}
		for _, r := range sheet.rows {
			row := make([]interface{}, len(r))
			for i, v := range r {
				row[i] = v
			}
			data = append(data, row)
		}
		if err := writeRows(f, sheet.name, data); err != nil {
			return nil, err
		}
		if err := f.SetRowStyle(sheet.name, 1, 1, bold); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func statusRows(report *models.Report) [][]string {
	rows := make([][]string, 0, len(report.StatusDistribution))
	for _, s := range report.StatusDistribution {
		rows = append(rows, []string{s.Status, fmt.Sprintf("%d", s.Count)})
	}
	return rows
}

func dailyRows(report *models.Report) [][]string {
	rows := make([][]string, 0, len(report.DailySales))
	for _, d := range report.DailySales {
		rows = append(rows, []string{d.Date.Format("2006-01-02"), d.Revenue.StringFixed(2)})
	}
	return rows
}

func monthlyRows(report *models.Report) [][]string {
	rows := make([][]string, 0, len(report.MonthlySales))
	for _, m := range report.MonthlySales {
		rows = append(rows, []string{fmt.Sprintf("%d-%02d", m.Year, int(m.Month)), m.Revenue.StringFixed(2)})
	}
	return rows
}

func productRows(products []models.ProductSales) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ProductName, p.ProductCode, p.TotalQuantity.String(), p.TotalRevenue.StringFixed(2)})
	}
	return rows
}
