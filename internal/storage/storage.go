package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Storage provides access to the inventory ledger: transactions, current
// stock levels, and entry templates.
type Storage interface {
	AddTransaction(tx NewTransaction) (Transaction, error)
	CurrentStock(category string) ([]StockLevel, error)
	Subcategories(category string) ([]string, error)
	DeleteSubcategory(category, subcategory string, deleteTransactions bool) (removedStock, removedTransactions int, err error)
	TransactionHistory(category, subcategory string, limit int) ([]Transaction, error)
	RecentTransactions(limit int) ([]Transaction, error)
	AllTransactions() ([]Transaction, error)

	SaveTemplate(name, category, subcategory, supplier string) (Template, error)
	Templates(category string) ([]Template, error)
	TemplateByName(category, name string) (Template, error)
	DeleteTemplate(category, name string) error
}

// Option configures a MemoryStorage.
type Option func(*MemoryStorage)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// MemoryStorage keeps the ledger in memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu           sync.RWMutex
	transactions []Transaction
	stock        []StockLevel
	templates    []Template

	clock func() time.Time
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage initialises an empty ledger.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	s := &MemoryStorage{
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTransaction records tx and applies it to the matching stock level,
// creating the level on first use. Stock Out never drives a level below zero.
func (s *MemoryStorage) AddTransaction(in NewTransaction) (Transaction, error) {
	category := strings.TrimSpace(in.Category)
	subcategory := strings.TrimSpace(in.Subcategory)
	if category == "" || subcategory == "" {
		return Transaction{}, ErrMissingCategory
	}
	txType, err := ParseTransactionType(string(in.Type))
	if err != nil {
		return Transaction{}, err
	}
	if in.Quantity.IsNegative() {
		return Transaction{}, fmt.Errorf("%w, got %s", ErrInvalidQuantity, in.Quantity)
	}

	now := s.clock()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	tx := Transaction{
		ID:          uuid.NewString(),
		Category:    category,
		Subcategory: subcategory,
		Type:        txType,
		Quantity:    in.Quantity,
		Date:        date,
		Supplier:    strings.TrimSpace(in.Supplier),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx.Clamped = s.applyLocked(tx, now)
	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *MemoryStorage) applyLocked(tx Transaction, now time.Time) bool {
	idx := -1
	for i := range s.stock {
		if s.stock[i].Category == tx.Category && s.stock[i].Subcategory == tx.Subcategory {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.stock = append(s.stock, StockLevel{
			Category:     tx.Category,
			Subcategory:  tx.Subcategory,
			RemainingQty: decimal.Zero,
		})
		idx = len(s.stock) - 1
	}

	level := &s.stock[idx]
	clamped := false
	switch tx.Type {
	case StockIn:
		level.RemainingQty = level.RemainingQty.Add(tx.Quantity)
	case StockOut:
		next := level.RemainingQty.Sub(tx.Quantity)
		if next.IsNegative() {
			next = decimal.Zero
			clamped = true
		}
		level.RemainingQty = next
	}
	level.LastUpdated = now
	if tx.Supplier != "" {
		level.Supplier = tx.Supplier
	}
	return clamped
}

// CurrentStock returns the levels of category with a positive quantity,
// sorted by subcategory.
func (s *MemoryStorage) CurrentStock(category string) ([]StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StockLevel, 0, len(s.stock))
	for _, level := range s.stock {
		if level.Category == category && level.RemainingQty.IsPositive() {
			out = append(out, level)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Subcategory < out[j].Subcategory
	})
	return out, nil
}

// Subcategories lists every subcategory seen in stock or transactions for category.
func (s *MemoryStorage) Subcategories(category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, level := range s.stock {
		if level.Category == category && level.Subcategory != "" {
			seen[level.Subcategory] = struct{}{}
		}
	}
	for _, tx := range s.transactions {
		if tx.Category == category && tx.Subcategory != "" {
			seen[tx.Subcategory] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for sub := range seen {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteSubcategory removes the stock level (and optionally the transactions)
// matching category/subcategory, ignoring case and surrounding whitespace.
func (s *MemoryStorage) DeleteSubcategory(category, subcategory string, deleteTransactions bool) (int, int, error) {
	match := func(cat, sub string) bool {
		return normalizeKey(cat) == normalizeKey(category) && normalizeKey(sub) == normalizeKey(subcategory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keptStock := s.stock[:0]
	for _, level := range s.stock {
		if !match(level.Category, level.Subcategory) {
			keptStock = append(keptStock, level)
		}
	}
	removedStock := len(s.stock) - len(keptStock)
	s.stock = keptStock

	removedTx := 0
	if deleteTransactions {
		keptTx := s.transactions[:0]
		for _, tx := range s.transactions {
			if !match(tx.Category, tx.Subcategory) {
				keptTx = append(keptTx, tx)
			}
		}
		removedTx = len(s.transactions) - len(keptTx)
		s.transactions = keptTx
	}

	return removedStock, removedTx, nil
}

// TransactionHistory returns transactions for category, newest date first.
// An empty subcategory matches all; a non-positive limit returns everything.
func (s *MemoryStorage) TransactionHistory(category, subcategory string, limit int) ([]Transaction, error) {
	s.mu.RLock()
	out := make([]Transaction, 0)
	for _, tx := range s.transactions {
		if tx.Category != category {
			continue
		}
		if subcategory != "" && tx.Subcategory != subcategory {
			continue
		}
		out = append(out, tx)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return truncate(out, limit), nil
}

// RecentTransactions returns the most recently created transactions across all categories.
func (s *MemoryStorage) RecentTransactions(limit int) ([]Transaction, error) {
	out, _ := s.AllTransactions()
	// Reverse insertion order first so equal timestamps list the latest entry first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return truncate(out, limit), nil
}

// AllTransactions returns a copy of the ledger in insertion order.
func (s *MemoryStorage) AllTransactions() ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out, nil
}

// SaveTemplate stores a new template; names are unique per category.
func (s *MemoryStorage) SaveTemplate(name, category, subcategory, supplier string) (Template, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	if name == "" {
		return Template{}, ErrMissingTemplateName
	}
	if category == "" || subcategory == "" {
		return Template{}, ErrMissingCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.templates {
		if t.Category == category && t.Name == name {
			return Template{}, fmt.Errorf("%w: %q", ErrTemplateExists, name)
		}
	}

	t := Template{
		ID:          uuid.NewString(),
		Name:        name,
		Category:    category,
		Subcategory: subcategory,
		Supplier:    strings.TrimSpace(supplier),
		CreatedAt:   s.clock(),
	}
	s.templates = append(s.templates, t)
	return t, nil
}

// Templates returns the templates saved for category in creation order.
func (s *MemoryStorage) Templates(category string) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0)
	for _, t := range s.templates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

// TemplateByName looks up a single template.
func (s *MemoryStorage) TemplateByName(category, name string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.templates {
		if t.Category == category && t.Name == name {
			return t, nil
		}
	}
	return Template{}, ErrTemplateNotFound
}

// DeleteTemplate removes a template. Deleting a missing template is not an error.
func (s *MemoryStorage) DeleteTemplate(category, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.templates[:0]
	for _, t := range s.templates {
		if !(t.Category == category && t.Name == name) {
			kept = append(kept, t)
		}
	}
	s.templates = kept
	return nil
}

func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func truncate(txs []Transaction, limit int) []Transaction {
	if limit > 0 && len(txs) > limit {
		return txs[:limit]
	}
	return txs
}
