// Package report derives ledger summaries and stock views from storage records.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/pressroom/internal/fit"
	"github.com/eugenenazirov/pressroom/internal/storage"
)

// Summary aggregates a set of transactions.
type Summary struct {
	TotalTransactions int
	TotalStockIn      decimal.Decimal
	TotalStockOut     decimal.Decimal
	NetChange         decimal.Decimal
}

// Summarize totals stock-in and stock-out quantities.
func Summarize(txs []storage.Transaction) Summary {
	in, out := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case storage.StockIn:
			in = in.Add(tx.Quantity)
		case storage.StockOut:
			out = out.Add(tx.Quantity)
		}
	}
	return Summary{
		TotalTransactions: len(txs),
		TotalStockIn:      in,
		TotalStockOut:     out,
		NetChange:         in.Sub(out),
	}
}

// FilterByDate keeps transactions dated within [from, to]. A zero bound is open.
func FilterByDate(txs []storage.Transaction, from, to time.Time) []storage.Transaction {
	out := make([]storage.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !from.IsZero() && tx.Date.Before(from) {
			continue
		}
		if !to.IsZero() && tx.Date.After(to) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// LowStock returns the levels at or below threshold.
func LowStock(levels []storage.StockLevel, threshold decimal.Decimal) []storage.StockLevel {
	out := make([]storage.StockLevel, 0)
	for _, level := range levels {
		if level.RemainingQty.LessThanOrEqual(threshold) {
			out = append(out, level)
		}
	}
	return out
}

// StockRows adapts store levels to fit evaluator input, using the
// subcategory as the size label.
func StockRows(levels []storage.StockLevel) []fit.StockRow {
	rows := make([]fit.StockRow, 0, len(levels))
	for _, level := range levels {
		rows = append(rows, fit.StockRow{
			Label:        level.Subcategory,
			RemainingQty: level.RemainingQty.InexactFloat64(),
		})
	}
	return rows
}
