package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV_ParsesRowsAndSkipsBadOnes(t *testing.T) {
	feed := strings.Join([]string{
		"Name, Description, Price, MRP, Quantity, minStockLevel, Category, Unit",
		"Basmati Rice,Long grain,80.50,95,120.5,10,Grains,KILOGRAMS",
		"Sunflower Oil,,150,,12,,Oils,L",
		",missing name,1,,1,,,",
		"Salt,,abc,,5,,,",
		"",
		"Sugar,,45,,,,,",
	}, "\n")

	rows, skipped, err := ReadCSV(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rice := rows[0]
	assert.Equal(t, 2, rice.Line)
	assert.Equal(t, "Basmati Rice", rice.Name)
	require.NotNil(t, rice.Description)
	assert.Equal(t, "Long grain", *rice.Description)
	assert.True(t, decimal.RequireFromString("80.50").Equal(rice.Price))
	require.NotNil(t, rice.MRP)
	assert.True(t, decimal.NewFromInt(95).Equal(*rice.MRP))
	assert.True(t, decimal.RequireFromString("120.5").Equal(rice.Quantity))
	assert.True(t, decimal.NewFromInt(10).Equal(rice.MinStockLevel))
	assert.Equal(t, "KILOGRAMS", rice.Unit)

	oil := rows[1]
	assert.Equal(t, 3, oil.Line)
	assert.Nil(t, oil.Description)
	assert.Nil(t, oil.MRP)
	assert.True(t, oil.MinStockLevel.IsZero())
	assert.Equal(t, "L", oil.Unit)

	require.Len(t, skipped, 3)
	assert.Equal(t, 4, skipped[0].Line)
	assert.Contains(t, skipped[0].Error, "name is required")
	assert.Equal(t, 5, skipped[1].Line)
	assert.Contains(t, skipped[1].Error, "invalid price")
	assert.Equal(t, 7, skipped[2].Line)
	assert.Contains(t, skipped[2].Error, "quantity is required")
}

func TestReadCSV_SnakeCaseHeaders(t *testing.T) {
	feed := "name,price,quantity,min_stock_level\nFlour,30,2,5\n"

	rows, skipped, err := ReadCSV(strings.NewReader(feed))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromInt(5).Equal(rows[0].MinStockLevel))
}

func TestReadCSV_MissingRequiredColumn(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("name,quantity\nFlour,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadXLSX_FirstSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	data := [][]interface{}{
		{"Name", "Price", "Quantity", "Unit"},
		{"Milk", "55", "3.5", "LITERS"},
		{"Eggs", "oops", "12", "PIECES"},
	}
	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, skipped, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Milk", rows[0].Name)
	assert.True(t, decimal.RequireFromString("3.5").Equal(rows[0].Quantity))
	require.Len(t, skipped, 1)
	assert.Equal(t, 3, skipped[0].Line)
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, _, err := ReadXLSX(strings.NewReader("not a zip"))
	assert.Error(t, err)
}
