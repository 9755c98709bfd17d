// Package stockcache memoises current-stock reads in front of a storage.Storage.
// Every write that passes through the cache drops all cached categories.
package stockcache

import (
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/cache"

	"github.com/eugenenazirov/pressroom/internal/storage"
)

const defaultMaxEntries = 64

// Clock supplies the current time to the expiring cache.
type Clock = cache.Clock

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option configures a Store.
type Option func(*options)

type options struct {
	maxEntries int
	clock      Clock
}

// WithMaxEntries bounds the number of cached categories.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// Store decorates a storage.Storage with a TTL cache on CurrentStock.
// A non-positive ttl disables caching.
type Store struct {
	storage.Storage

	ttl   time.Duration
	stock *cache.LRUExpireCache

	// generation is bumped by every invalidation. A read only fills the
	// cache if no invalidation happened while it was talking to the backend.
	mu         sync.Mutex
	generation uint64
}

var _ storage.Storage = (*Store)(nil)

// New wraps backend.
func New(backend storage.Storage, ttl time.Duration, opts ...Option) *Store {
	o := options{maxEntries: defaultMaxEntries, clock: realClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		Storage: backend,
		ttl:     ttl,
		stock:   cache.NewLRUExpireCacheWithClock(o.maxEntries, o.clock),
	}
}

// CurrentStock serves category from the cache when fresh, otherwise reads
// through to the backend. Callers receive their own copy.
func (s *Store) CurrentStock(category string) ([]storage.StockLevel, error) {
	if s.ttl > 0 {
		if v, ok := s.stock.Get(category); ok {
			return cloneLevels(v.([]storage.StockLevel)), nil
		}
	}

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	levels, err := s.Storage.CurrentStock(category)
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 {
		s.mu.Lock()
		if s.generation == generation {
			s.stock.Add(category, cloneLevels(levels), s.ttl)
		}
		s.mu.Unlock()
	}
	return levels, nil
}

// AddTransaction writes through and invalidates the cache.
func (s *Store) AddTransaction(tx storage.NewTransaction) (storage.Transaction, error) {
	defer s.Invalidate()
	return s.Storage.AddTransaction(tx)
}

// DeleteSubcategory writes through and invalidates the cache.
func (s *Store) DeleteSubcategory(category, subcategory string, deleteTransactions bool) (int, int, error) {
	defer s.Invalidate()
	return s.Storage.DeleteSubcategory(category, subcategory, deleteTransactions)
}

// Invalidate drops every cached entry.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	for _, key := range s.stock.Keys() {
		s.stock.Remove(key)
	}
}

func cloneLevels(src []storage.StockLevel) []storage.StockLevel {
	out := make([]storage.StockLevel, len(src))
	copy(out, src)
	return out
}
