package fit

import "github.com/eugenenazirov/pressroom/internal/sizes"

// Orientation describes how a piece is laid onto a stock sheet.
type Orientation string

const (
	// Normal aligns the piece width with the sheet width.
	Normal Orientation = "normal"
	// Rotated turns the piece by 90 degrees.
	Rotated Orientation = "rotated"
)

// Candidate is the outcome of tiling one sheet with one piece size.
// Pieces is always Columns*Rows.
type Candidate struct {
	Orientation Orientation `json:"orientation"`
	Columns     int         `json:"columns"`
	Rows        int         `json:"rows"`
	Pieces      int         `json:"pieces"`
	WasteArea   float64     `json:"wasteArea"`
	Utilization float64     `json:"utilization"`
}

// StockRow is a current-stock line as read from the inventory store.
type StockRow struct {
	Label        string
	RemainingQty float64
}

// Result is the winning candidate for a single stock row.
type Result struct {
	Label        string     `json:"label"`
	Stock        sizes.Size `json:"stock"`
	RemainingQty float64    `json:"remainingQty"`
	Candidate
	TotalPiecesPossible float64 `json:"totalPiecesPossible"`
}

// Evaluator describes the behaviour required from a cut-fit evaluator.
type Evaluator interface {
	ComputeFit(stock, piece sizes.Size) (Candidate, bool)
	EvaluateOptions(piece sizes.Size, rows []StockRow) []Result
}
