package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/pressroom/internal/fit"
	"github.com/eugenenazirov/pressroom/internal/sizes"
	"github.com/eugenenazirov/pressroom/internal/storage"
)

const (
	fitSheet   = "Fit Options"
	stockSheet = "Current Stock"
)

var (
	fitHeader   = []any{"Stock Label", "Stock Size", "Orientation", "Columns", "Rows", "Pieces/Sheet", "Waste Area", "Utilization %", "Remaining Qty", "Total Pieces"}
	stockHeader = []any{"Category", "Subcategory", "Remaining Qty", "Supplier", "Last Updated"}
)

// WriteFitResults renders ranked fit results for piece as a single-sheet workbook.
func WriteFitResults(w io.Writer, piece sizes.Size, results []fit.Result) error {
	rows := make([][]any, 0, len(results)+2)
	rows = append(rows, []any{"Requested size", piece.String()}, fitHeader)
	for _, r := range results {
		rows = append(rows, []any{
			r.Label,
			r.Stock.String(),
			string(r.Orientation),
			r.Columns,
			r.Rows,
			r.Pieces,
			r.WasteArea,
			r.Utilization * 100,
			r.RemainingQty,
			r.TotalPiecesPossible,
		})
	}
	return writeSheet(w, fitSheet, 2, rows)
}

// WriteStock renders current stock levels as a single-sheet workbook.
func WriteStock(w io.Writer, levels []storage.StockLevel) error {
	rows := make([][]any, 0, len(levels)+1)
	rows = append(rows, stockHeader)
	for _, level := range levels {
		updated := ""
		if !level.LastUpdated.IsZero() {
			updated = level.LastUpdated.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []any{
			level.Category,
			level.Subcategory,
			level.RemainingQty.InexactFloat64(),
			level.Supplier,
			updated,
		})
	}
	return writeSheet(w, stockSheet, 1, rows)
}

func writeSheet(w io.Writer, name string, headerRow int, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell reference: %w", err)
		}
		if err := f.SetSheetRow(name, cellRef, &rows[i]); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(name, headerRow, headerRow, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
