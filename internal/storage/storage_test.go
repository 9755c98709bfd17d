package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStorage() *MemoryStorage {
	clock := &stepClock{now: time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryStorage(WithClock(clock.Now))
}

func mustAdd(t *testing.T, s *MemoryStorage, category, subcategory string, txType TransactionType, qty int64) Transaction {
	t.Helper()
	tx, err := s.AddTransaction(NewTransaction{
		Category:    category,
		Subcategory: subcategory,
		Type:        txType,
		Quantity:    decimal.NewFromInt(qty),
	})
	if err != nil {
		t.Fatalf("AddTransaction returned error: %v", err)
	}
	return tx
}

func TestAddTransactionUpdatesStock(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	mustAdd(t, store, "Paper", "23x36 Maplitho", StockIn, 100)
	mustAdd(t, store, "Paper", "23x36 Maplitho", StockOut, 30)
	mustAdd(t, store, "Paper", "18x23 Art", StockIn, 12)

	levels, err := store.CurrentStock("Paper")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 stock levels, got %d", len(levels))
	}
	if levels[0].Subcategory != "18x23 Art" || levels[1].Subcategory != "23x36 Maplitho" {
		t.Fatalf("expected levels sorted by subcategory, got %v", levels)
	}
	if !levels[1].RemainingQty.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected 70 remaining, got %s", levels[1].RemainingQty)
	}
}

func TestAddTransactionClampsOverdraw(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	mustAdd(t, store, "Inks", "Cyan", StockIn, 5)
	tx := mustAdd(t, store, "Inks", "Cyan", StockOut, 8)

	if !tx.Clamped {
		t.Fatalf("expected overdraw to be flagged as clamped")
	}

	levels, _ := store.CurrentStock("Inks")
	if len(levels) != 0 {
		t.Fatalf("expected empty level to be hidden, got %v", levels)
	}

	again := mustAdd(t, store, "Inks", "Cyan", StockIn, 2)
	if again.Clamped {
		t.Fatalf("stock in must never be clamped")
	}
	levels, _ = store.CurrentStock("Inks")
	if len(levels) != 1 || !levels[0].RemainingQty.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2 remaining after clamp then restock, got %v", levels)
	}
}

func TestAddTransactionNormalizesInput(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	tx, err := store.AddTransaction(NewTransaction{
		Category:    "  Paper ",
		Subcategory: " 15x20 ",
		Type:        "stock in",
		Quantity:    decimal.RequireFromString("12.5"),
		Supplier:    " Ballarpur ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Category != "Paper" || tx.Subcategory != "15x20" || tx.Type != StockIn || tx.Supplier != "Ballarpur" {
		t.Fatalf("unexpected normalized transaction: %+v", tx)
	}
	if tx.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if tx.Date.IsZero() {
		t.Fatalf("expected date to default to creation time")
	}

	levels, _ := store.CurrentStock("Paper")
	if len(levels) != 1 || levels[0].Supplier != "Ballarpur" {
		t.Fatalf("expected supplier on stock level, got %v", levels)
	}
}

func TestAddTransactionValidation(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	cases := []struct {
		name    string
		tx      NewTransaction
		wantErr error
	}{
		{"MissingCategory", NewTransaction{Subcategory: "x", Type: StockIn}, ErrMissingCategory},
		{"MissingSubcategory", NewTransaction{Category: "Paper", Type: StockIn}, ErrMissingCategory},
		{"UnknownType", NewTransaction{Category: "Paper", Subcategory: "x", Type: "Transfer"}, ErrUnknownTransactionType},
		{"NegativeQuantity", NewTransaction{Category: "Paper", Subcategory: "x", Type: StockOut, Quantity: decimal.NewFromInt(-1)}, ErrInvalidQuantity},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.AddTransaction(tc.tx); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	all, _ := store.AllTransactions()
	if len(all) != 0 {
		t.Fatalf("expected rejected transactions not to be stored, got %d", len(all))
	}
}

func TestParseTransactionType(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]TransactionType{
		"Stock In":    StockIn,
		"STOCK  OUT":  StockOut,
		" in ":        StockIn,
		"Out":         StockOut,
		"stock in":    StockIn,
		"Stock  Out ": StockOut,
	} {
		got, err := ParseTransactionType(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("expected %q for %q, got %q", want, raw, got)
		}
	}

	if _, err := ParseTransactionType("adjust"); !errors.Is(err, ErrUnknownTransactionType) {
		t.Fatalf("expected ErrUnknownTransactionType, got %v", err)
	}
}

func TestSubcategoriesUnionStockAndTransactions(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	mustAdd(t, store, "Chemicals", "Developer", StockIn, 3)
	mustAdd(t, store, "Chemicals", "Fixer", StockIn, 1)
	mustAdd(t, store, "Chemicals", "Fixer", StockOut, 1)
	mustAdd(t, store, "Paper", "15x20", StockIn, 1)

	got, err := store.Subcategories("Chemicals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"Developer", "Fixer"}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDeleteSubcategory(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	mustAdd(t, store, "Paper", "15x20", StockIn, 10)
	mustAdd(t, store, "Paper", "15x20", StockOut, 2)
	mustAdd(t, store, "Paper", "30x40", StockIn, 4)

	removedStock, removedTx, err := store.DeleteSubcategory(" paper", "15X20 ", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removedStock != 1 || removedTx != 0 {
		t.Fatalf("expected 1 stock row and no transactions removed, got %d/%d", removedStock, removedTx)
	}

	_, removedTx, _ = store.DeleteSubcategory("Paper", "15x20", true)
	if removedTx != 2 {
		t.Fatalf("expected 2 transactions removed, got %d", removedTx)
	}

	levels, _ := store.CurrentStock("Paper")
	if len(levels) != 1 || levels[0].Subcategory != "30x40" {
		t.Fatalf("unexpected remaining stock: %v", levels)
	}
}

func TestTransactionHistoryOrderingAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	day := func(d int) time.Time { return time.Date(2024, 10, d, 0, 0, 0, 0, time.UTC) }
	for i, d := range []int{3, 9, 1, 9} {
		_, err := store.AddTransaction(NewTransaction{
			Category:    "Paper",
			Subcategory: fmt.Sprintf("sheet-%d", i%2),
			Type:        StockIn,
			Quantity:    decimal.NewFromInt(int64(i + 1)),
			Date:        day(d),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, _ := store.TransactionHistory("Paper", "", 0)
	if len(history) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(history))
	}
	// Two entries share the 9th; the later-created one comes first.
	if !history[0].Quantity.Equal(decimal.NewFromInt(4)) || !history[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected order: %v, %v", history[0].Quantity, history[1].Quantity)
	}
	if !history[3].Date.Equal(day(1)) {
		t.Fatalf("expected oldest last, got %s", history[3].Date)
	}

	limited, _ := store.TransactionHistory("Paper", "sheet-0", 1)
	if len(limited) != 1 || limited[0].Subcategory != "sheet-0" {
		t.Fatalf("unexpected limited history: %v", limited)
	}
}

func TestRecentTransactions(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	mustAdd(t, store, "Paper", "a", StockIn, 1)
	mustAdd(t, store, "Inks", "b", StockIn, 2)
	mustAdd(t, store, "Poly Films", "c", StockIn, 3)

	recent, _ := store.RecentTransactions(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent transactions, got %d", len(recent))
	}
	if recent[0].Subcategory != "c" || recent[1].Subcategory != "b" {
		t.Fatalf("expected newest first, got %s, %s", recent[0].Subcategory, recent[1].Subcategory)
	}
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	store := newTestStorage()
	saved, err := store.SaveTemplate("Art card", "Paper", "25x36 Art 300gsm", "JK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected ID and creation time, got %+v", saved)
	}

	if _, err := store.SaveTemplate("Art card", "Paper", "other", ""); !errors.Is(err, ErrTemplateExists) {
		t.Fatalf("expected ErrTemplateExists, got %v", err)
	}
	if _, err := store.SaveTemplate("Art card", "Inks", "other", ""); err != nil {
		t.Fatalf("same name in another category should be allowed: %v", err)
	}
	if _, err := store.SaveTemplate(" ", "Inks", "other", ""); !errors.Is(err, ErrMissingTemplateName) {
		t.Fatalf("expected ErrMissingTemplateName, got %v", err)
	}

	got, err := store.TemplateByName("Paper", "Art card")
	if err != nil || got.Subcategory != "25x36 Art 300gsm" {
		t.Fatalf("unexpected lookup result %+v, err %v", got, err)
	}

	list, _ := store.Templates("Paper")
	if len(list) != 1 {
		t.Fatalf("expected 1 paper template, got %d", len(list))
	}

	if err := store.DeleteTemplate("Paper", "Art card"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.TemplateByName("Paper", "Art card"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txType := StockIn
			if i%2 == 1 {
				txType = StockOut
			}
			_, _ = store.AddTransaction(NewTransaction{Category: "Paper", Subcategory: "15x20", Type: txType, Quantity: decimal.NewFromInt(1)})
			_, _ = store.CurrentStock("Paper")
		}(i)
	}
	wg.Wait()

	all, _ := store.AllTransactions()
	if len(all) != 20 {
		t.Fatalf("expected 20 transactions, got %d", len(all))
	}
}
