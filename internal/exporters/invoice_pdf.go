package exporters

import (
	"bytes"
	"fmt"
	"time"

	"stockbill/internal/common"
	"stockbill/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// InvoiceRenderer turns a fully loaded invoice into a document.
type InvoiceRenderer interface {
	RenderInvoice(invoice *models.Invoice) ([]byte, error)
}

type pdfInvoiceRenderer struct {
	companyName string
	now         func() time.Time
}

func NewPDFInvoiceRenderer(companyName string) InvoiceRenderer {
	return &pdfInvoiceRenderer{companyName: companyName, now: time.Now}
}

// statusLabel flags a SENT invoice that is past its due date on the rendering day.
func statusLabel(invoice *models.Invoice, today time.Time) string {
	if invoice.IsOverdue(today) {
		return fmt.Sprintf("%s (OVERDUE)", invoice.Status)
	}
	return string(invoice.Status)
}

func (r *pdfInvoiceRenderer) RenderInvoice(invoice *models.Invoice) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	marginX, marginY := 15.0, 20.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.SetXY(marginX, marginY)
	pdf.Cell(0, 10, tr(r.companyName+" INVOICE"))
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, tr("Invoice Number: "+invoice.InvoiceNumber))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Invoice Date: %s", invoice.InvoiceDate.Format("02-Jan-2006")))
	pdf.Ln(7)
	if invoice.DueDate != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Due Date: %s", invoice.DueDate.Format("02-Jan-2006")))
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, "Status: "+statusLabel(invoice, r.now()))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "BILL TO:")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(invoice.CustomerName))
	pdf.Ln(6)
	for _, line := range []*string{invoice.CustomerAddr, invoice.CustomerEmail, invoice.CustomerPhone} {
		if s := common.SafeString(line); s != "" {
			pdf.Cell(0, 6, tr(s))
			pdf.Ln(6)
		}
	}
	pdf.Ln(4)

	headers := []string{"#", "Code", "Product", "Qty", "Unit", "Unit Price", "Total"}
	colWidths := []float64{10, 25, 55, 20, 15, 25, 30}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for i, item := range invoice.Items {
		name := item.ProductName
		if d := common.SafeString(item.Description); d != "" {
			name = d
		}
		pdf.CellFormat(colWidths[0], 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[1], 7, tr(item.ProductCode), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, tr(truncate(name, 32)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[3], 7, item.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 7, item.ProductUnit.Code(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[5], 7, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[6], 7, item.TotalPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	totals := [][2]string{
		{"Subtotal:", invoice.Subtotal.StringFixed(2)},
		{"Tax:", invoice.TaxAmount.StringFixed(2)},
		{"Discount:", "-" + invoice.DiscountAmount.StringFixed(2)},
	}
	for _, row := range totals {
		pdf.CellFormat(140, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(220, 20, 60)
	pdf.CellFormat(140, 8, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, invoice.TotalAmount.StringFixed(2), "", 0, "R", false, 0, "")
	pdf.Ln(10)

	if notes := common.SafeString(invoice.Notes); notes != "" {
		pdf.SetTextColor(33, 37, 41)
		pdf.SetFont("Arial", "B", 9)
		pdf.Cell(0, 6, "Notes:")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(notes), "", "L", false)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(0, 5, "This is a computer generated invoice.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
