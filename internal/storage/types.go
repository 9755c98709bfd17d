package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes receipts from consumption.
type TransactionType string

const (
	StockIn  TransactionType = "Stock In"
	StockOut TransactionType = "Stock Out"
)

// ParseTransactionType accepts "Stock In"/"Stock Out" in any case, plus the
// short forms "in" and "out".
func ParseTransactionType(raw string) (TransactionType, error) {
	switch strings.Join(strings.Fields(strings.ToLower(raw)), " ") {
	case "stock in", "in":
		return StockIn, nil
	case "stock out", "out":
		return StockOut, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, raw)
	}
}

// NewTransaction is the input to AddTransaction.
type NewTransaction struct {
	Category    string
	Subcategory string
	Type        TransactionType
	Quantity    decimal.Decimal
	Date        time.Time
	Supplier    string
	Notes       string
}

// Transaction is a ledger entry.
type Transaction struct {
	ID          string
	Category    string
	Subcategory string
	Type        TransactionType
	Quantity    decimal.Decimal
	Date        time.Time
	Supplier    string
	Notes       string
	CreatedAt   time.Time
	// Clamped is set when a Stock Out exceeded the remaining quantity and the
	// stock level was floored at zero.
	Clamped bool
}

// StockLevel is the current quantity of one subcategory.
type StockLevel struct {
	Category     string
	Subcategory  string
	RemainingQty decimal.Decimal
	LastUpdated  time.Time
	Supplier     string
}

// Template is a saved subcategory/supplier pair for quick entry.
type Template struct {
	ID          string
	Name        string
	Category    string
	Subcategory string
	Supplier    string
	CreatedAt   time.Time
}
