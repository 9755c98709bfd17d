// Package workbook reads bulk transaction uploads from .xlsx files and writes
// stock and cut-fit reports back out as .xlsx.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/pressroom/internal/storage"
)

var (
	// ErrNoSheets is returned for a workbook without worksheets or rows.
	ErrNoSheets = errors.New("workbook has no data")
	// ErrMissingColumns is returned when the header row lacks a required column.
	ErrMissingColumns = errors.New("missing required columns")
)

// Import holds the transactions parsed from a workbook plus one warning per
// skipped row.
type Import struct {
	Transactions []storage.NewTransaction
	Warnings     []string
}

type column int

const (
	colSubcategory column = iota
	colType
	colQuantity
	colDate
	colSupplier
	colNotes
	columnCount
)

var columnNames = [columnCount]string{"subcategory", "transaction_type", "quantity", "date", "supplier", "notes"}

// headerAliases maps each column to its accepted header spellings (lowercase).
var headerAliases = map[column][]string{
	colSubcategory: {"subcategory", "sub category", "sub_category", "item", "product", "size"},
	colType:        {"transaction_type", "transaction type", "type"},
	colQuantity:    {"quantity", "qty", "amount"},
	colDate:        {"date", "transaction_date", "transaction date"},
	colSupplier:    {"supplier", "vendor"},
	colNotes:       {"notes", "note", "remarks"},
}

var required = []column{colSubcategory, colType, colQuantity, colDate}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"01-02-06",
	"1/2/06",
	time.RFC3339,
}

// ReadTransactions parses the first worksheet of an .xlsx stream into
// transactions for category. The first row must be a header naming at least
// subcategory, transaction_type, quantity and date (case-insensitive).
// Rows with blank required cells or an unknown transaction type are skipped.
func ReadTransactions(r io.Reader, category string) (Import, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Import{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Import{}, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Import{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return Import{}, ErrNoSheets
	}

	mapping := detectColumns(rows[0])
	var missing []string
	for _, c := range required {
		if mapping[c] < 0 {
			missing = append(missing, columnNames[c])
		}
	}
	if len(missing) > 0 {
		return Import{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	result := Import{Transactions: make([]storage.NewTransaction, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		rowLabel := fmt.Sprintf("Row %d", i+2)
		tx, warning := parseRow(row, mapping, category)
		if warning != "" {
			result.Warnings = append(result.Warnings, rowLabel+": "+warning)
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}
	return result, nil
}

func detectColumns(header []string) [columnCount]int {
	var mapping [columnCount]int
	for i := range mapping {
		mapping[i] = -1
	}
	for idx, cell := range header {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for c, aliases := range headerAliases {
			if mapping[c] != -1 {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					mapping[c] = idx
					break
				}
			}
		}
	}
	return mapping
}

func parseRow(row []string, mapping [columnCount]int, category string) (storage.NewTransaction, string) {
	subcategory := cell(row, mapping[colSubcategory])
	rawQty := cell(row, mapping[colQuantity])
	rawDate := cell(row, mapping[colDate])
	if subcategory == "" || rawQty == "" || rawDate == "" {
		return storage.NewTransaction{}, "missing subcategory, quantity or date"
	}

	txType, err := storage.ParseTransactionType(cell(row, mapping[colType]))
	if err != nil {
		return storage.NewTransaction{}, err.Error()
	}

	qty, err := decimal.NewFromString(rawQty)
	if err != nil {
		return storage.NewTransaction{}, fmt.Sprintf("invalid quantity %q", rawQty)
	}

	date, err := parseDate(rawDate)
	if err != nil {
		return storage.NewTransaction{}, err.Error()
	}

	return storage.NewTransaction{
		Category:    category,
		Subcategory: subcategory,
		Type:        txType,
		Quantity:    qty,
		Date:        date,
		Supplier:    cell(row, mapping[colSupplier]),
		Notes:       cell(row, mapping[colNotes]),
	}, ""
}

// parseDate accepts an Excel serial date or one of the common text layouts.
func parseDate(raw string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", raw)
		}
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
