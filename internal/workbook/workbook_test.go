package workbook

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/pressroom/internal/fit"
	"github.com/eugenenazirov/pressroom/internal/sizes"
	"github.com/eugenenazirov/pressroom/internal/storage"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, value := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellRef, value))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadTransactions(t *testing.T) {
	t.Parallel()

	buf := buildWorkbook(t, [][]any{
		{"Subcategory", "Transaction Type", "Qty", "Date", "Supplier", "Notes"},
		{"15x20 Maplitho", "Stock In", 100, "2024-10-01", "JK Paper", "opening"},
		{"15x20 Maplitho", "stock out", "12.5", 45566, "", ""},
		{"", "Stock In", 5, "2024-10-02"},
		{"30x40", "Transfer", 5, "2024-10-02"},
		{"30x40", "Stock In", "lots", "2024-10-02"},
		{"30x40", "Stock In", 5, "yesterday"},
	})

	got, err := ReadTransactions(buf, "Paper")
	require.NoError(t, err)
	require.Len(t, got.Transactions, 2)
	assert.Len(t, got.Warnings, 4)
	assert.Contains(t, got.Warnings[0], "Row 4")

	first := got.Transactions[0]
	assert.Equal(t, "Paper", first.Category)
	assert.Equal(t, "15x20 Maplitho", first.Subcategory)
	assert.Equal(t, storage.StockIn, first.Type)
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "JK Paper", first.Supplier)
	assert.Equal(t, "opening", first.Notes)

	second := got.Transactions[1]
	assert.Equal(t, storage.StockOut, second.Type)
	assert.True(t, second.Quantity.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 2024, second.Date.Year())
	assert.Equal(t, time.October, second.Date.Month())
	assert.Equal(t, 1, second.Date.Day())
}

func TestReadTransactionsMissingColumns(t *testing.T) {
	t.Parallel()

	buf := buildWorkbook(t, [][]any{
		{"Subcategory", "Quantity"},
		{"15x20", 10},
	})

	_, err := ReadTransactions(buf, "Paper")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.Contains(t, err.Error(), "transaction_type")
	assert.Contains(t, err.Error(), "date")
}

func TestReadTransactionsRejectsNonWorkbook(t *testing.T) {
	t.Parallel()

	_, err := ReadTransactions(bytes.NewBufferString("subcategory,quantity\n"), "Paper")
	assert.Error(t, err)
}

func TestWriteFitResults(t *testing.T) {
	t.Parallel()

	results := fit.New().EvaluateOptions(sizes.Size{Width: 5, Height: 10}, []fit.StockRow{
		{Label: "15x20", RemainingQty: 10},
		{Label: "30x40", RemainingQty: 5},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteFitResults(&buf, sizes.Size{Width: 5, Height: 10}, results))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{fitSheet}, f.GetSheetList())
	rows, err := f.GetRows(fitSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Requested size", "5x10"}, rows[0])
	assert.Equal(t, "Stock Label", rows[1][0])
	assert.Equal(t, "30x40", rows[2][0])
	assert.Equal(t, "24", rows[2][5])
	assert.Equal(t, "120", rows[2][9])
	assert.Equal(t, "15x20", rows[3][0])
}

func TestWriteStock(t *testing.T) {
	t.Parallel()

	levels := []storage.StockLevel{
		{Category: "Inks", Subcategory: "Cyan", RemainingQty: decimal.RequireFromString("4.5"), Supplier: "DIC"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStock(&buf, levels))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(stockSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Subcategory", rows[0][1])
	assert.Equal(t, []string{"Inks", "Cyan", "4.5", "DIC"}, rows[1])
}
