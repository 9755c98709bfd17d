package fit

import (
	"math"
	"sort"

	"github.com/eugenenazirov/pressroom/internal/sizes"
)

type gridEvaluator struct{}

// New creates an Evaluator that tiles sheets with a single-size grid in both
// axis-aligned orientations.
func New() Evaluator {
	return &gridEvaluator{}
}

// ComputeFit returns the better of the normal and rotated grid tilings of
// stock by piece. More pieces wins, then less waste; a full tie keeps the
// normal orientation. ok is false when a dimension is not positive or no
// piece fits either way.
func (e *gridEvaluator) ComputeFit(stock, piece sizes.Size) (Candidate, bool) {
	if !stock.Positive() || !piece.Positive() {
		return Candidate{}, false
	}

	stockArea := stock.Area()
	pieceArea := piece.Area()

	best, found := Candidate{}, false
	for _, c := range [...]Candidate{
		tile(Normal, stock.Width/piece.Width, stock.Height/piece.Height, stockArea, pieceArea),
		tile(Rotated, stock.Width/piece.Height, stock.Height/piece.Width, stockArea, pieceArea),
	} {
		if c.Pieces <= 0 {
			continue
		}
		if !found || better(c, best) {
			best, found = c, true
		}
	}

	return best, found
}

// EvaluateOptions runs ComputeFit for every stock row whose label parses to a
// size and ranks the fitting rows by pieces (desc), waste (asc) and
// utilization (desc). Rows with equal keys keep their catalog order.
func (e *gridEvaluator) EvaluateOptions(piece sizes.Size, rows []StockRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		stock, ok := sizes.Parse(row.Label)
		if !ok {
			continue
		}
		candidate, ok := e.ComputeFit(stock, piece)
		if !ok {
			continue
		}
		results = append(results, Result{
			Label:               row.Label,
			Stock:               stock,
			RemainingQty:        row.RemainingQty,
			Candidate:           candidate,
			TotalPiecesPossible: float64(candidate.Pieces) * row.RemainingQty,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Pieces != b.Pieces {
			return a.Pieces > b.Pieces
		}
		if a.WasteArea != b.WasteArea {
			return a.WasteArea < b.WasteArea
		}
		return a.Utilization > b.Utilization
	})

	return results
}

// ValidatePiece checks a requested piece size before evaluation.
func ValidatePiece(piece sizes.Size) error {
	if !piece.Positive() {
		return ErrInvalidPieceSize
	}
	return nil
}

// FilterMinPieces keeps results yielding at least minPieces per sheet.
// A non-positive minimum keeps everything.
func FilterMinPieces(results []Result, minPieces int) []Result {
	if minPieces <= 0 {
		return results
	}
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Pieces >= minPieces {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// maxPieces bounds a single tiling so that piece counts stay exact in
// float64 and fit in an int. Larger grids are treated as not fitting.
const maxPieces = 1 << 53

func tile(orientation Orientation, colsRatio, rowsRatio, stockArea, pieceArea float64) Candidate {
	cols := math.Floor(colsRatio)
	rows := math.Floor(rowsRatio)
	pieces := cols * rows
	if !(pieces >= 1 && pieces <= maxPieces) {
		return Candidate{Orientation: orientation}
	}

	used := pieces * pieceArea
	utilization := 0.0
	if stockArea > 0 {
		utilization = used / stockArea
	}

	return Candidate{
		Orientation: orientation,
		Columns:     int(cols),
		Rows:        int(rows),
		Pieces:      int(pieces),
		WasteArea:   math.Max(0, stockArea-used),
		Utilization: utilization,
	}
}

func better(c, incumbent Candidate) bool {
	if c.Pieces != incumbent.Pieces {
		return c.Pieces > incumbent.Pieces
	}
	return c.WasteArea < incumbent.WasteArea
}
