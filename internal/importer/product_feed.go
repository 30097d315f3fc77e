package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"stockbill/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when the header row lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

var requiredColumns = []string{"name", "price", "quantity"}

// header maps a normalised column name to its index.
type header map[string]int

func normaliseColumn(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(s)
}

func parseHeader(cols []string) (header, error) {
	h := header{}
	for i, c := range cols {
		h[normaliseColumn(c)] = i
	}
	for _, req := range requiredColumns {
		if _, ok := h[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}
	return h, nil
}

func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseDecimal(raw, field string, required bool) (*decimal.Decimal, error) {
	if raw == "" {
		if required {
			return nil, fmt.Errorf("%s is required", field)
		}
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", field, raw)
	}
	return &d, nil
}

func parseRecord(h header, record []string, line int) (models.ProductImportRow, error) {
	row := models.ProductImportRow{
		Line: line,
		Name: h.get(record, "name"),
		Unit: h.get(record, "unit"),
	}
	if row.Name == "" {
		return row, fmt.Errorf("name is required")
	}
	if desc := h.get(record, "description"); desc != "" {
		row.Description = &desc
	}
	if cat := h.get(record, "category"); cat != "" {
		row.Category = &cat
	}

	price, err := parseDecimal(h.get(record, "price"), "price", true)
	if err != nil {
		return row, err
	}
	row.Price = *price

	if row.MRP, err = parseDecimal(h.get(record, "mrp"), "mrp", false); err != nil {
		return row, err
	}

	qty, err := parseDecimal(h.get(record, "quantity"), "quantity", true)
	if err != nil {
		return row, err
	}
	row.Quantity = *qty

	minStock, err := parseDecimal(h.get(record, "minstocklevel"), "minStockLevel", false)
	if err != nil {
		return row, err
	}
	if minStock != nil {
		row.MinStockLevel = *minStock
	}

	return row, nil
}

// record is one raw row with the 1-based line it came from.
type record struct {
	line   int
	fields []string
}

func parseRecords(records []record) ([]models.ProductImportRow, []models.BulkOperationError, error) {
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrMissingColumn)
	}
	h, err := parseHeader(records[0].fields)
	if err != nil {
		return nil, nil, err
	}

	var rows []models.ProductImportRow
	var skipped []models.BulkOperationError
	for _, rec := range records[1:] {
		line, record := rec.line, rec.fields
		if isBlank(record) {
			continue
		}
		row, err := parseRecord(h, record, line)
		if err != nil {
			skipped = append(skipped, models.BulkOperationError{Line: line, Error: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadCSV parses a header-first CSV product feed. Rows that fail to parse are reported, not fatal.
func ReadCSV(r io.Reader) ([]models.ProductImportRow, []models.BulkOperationError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}
	return parseRecords(records)
}

// ReadXLSX parses the first sheet of a workbook with the same layout as the CSV feed.
func ReadXLSX(r io.Reader) ([]models.ProductImportRow, []models.BulkOperationError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	records := make([]record, len(rows))
	for i, fields := range rows {
		records[i] = record{line: i + 1, fields: fields}
	}
	return parseRecords(records)
}
