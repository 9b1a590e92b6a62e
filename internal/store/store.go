package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wonny/marketpulse/internal/contracts"
)

// TableName is the persisted table for metric records
const TableName = "stock_prices"

// Store is the insert-if-absent store keyed by (symbol, date)
// ⭐ SSOT: stock_prices 저장소 인터페이스
type Store interface {
	// Initialize creates the schema if needed. Safe to call on every startup.
	Initialize(ctx context.Context) error
	// Save inserts records whose (symbol, date) is absent and returns how many were inserted.
	// The batch is all-or-nothing.
	Save(ctx context.Context, records []contracts.MetricRecord) (int, error)
	// ListBySymbol returns the newest rows for symbol in ascending date order.
	// Reads do not need Initialize; a missing table is ErrNotInitialized.
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]contracts.StoredRow, error)
	// Count returns the number of stored rows.
	Count(ctx context.Context) (int64, error)
	// Driver names the backend.
	Driver() string
	Close() error
}

// Backend is a storage engine behind the Keyed guard.
// Implementations acquire a scoped connection per call and report a missing
// table as ErrNotInitialized.
type Backend interface {
	Name() string
	CreateSchema(ctx context.Context) error
	// InsertIfAbsent inserts rows inside one transaction, skipping existing keys.
	InsertIfAbsent(ctx context.Context, rows []contracts.StoredRow) (int, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]contracts.StoredRow, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Keyed wraps a Backend with the schema barrier and per-symbol write locks
type Keyed struct {
	backend Backend

	initMu sync.Mutex
	ready  atomic.Bool

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Compile-time interface check.
var _ Store = (*Keyed)(nil)

// New wraps backend
func New(backend Backend) *Keyed {
	return &Keyed{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Initialize runs the schema creation once. Concurrent callers wait for the
// first one; a failed attempt leaves the barrier open so a later call can retry.
func (k *Keyed) Initialize(ctx context.Context) error {
	if k.ready.Load() {
		return nil
	}

	k.initMu.Lock()
	defer k.initMu.Unlock()

	if k.ready.Load() {
		return nil
	}

	if err := k.backend.CreateSchema(ctx); err != nil {
		return fmt.Errorf("initialize %s store: %w", k.backend.Name(), err)
	}

	k.ready.Store(true)
	return nil
}

// Save inserts absent records. Writes for the same symbol are serialized;
// distinct symbols proceed concurrently.
func (k *Keyed) Save(ctx context.Context, records []contracts.MetricRecord) (int, error) {
	if !k.ready.Load() {
		return 0, ErrNotInitialized
	}
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]contracts.StoredRow, len(records))
	symbols := make(map[string]struct{})
	for i, rec := range records {
		rows[i] = rec.ToStoredRow()
		symbols[rec.Symbol] = struct{}{}
	}

	unlock := k.lockSymbols(symbols)
	defer unlock()

	inserted, err := k.backend.InsertIfAbsent(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("save %d records: %w", len(rows), err)
	}
	return inserted, nil
}

// ListBySymbol returns stored rows for symbol. It never creates the schema.
func (k *Keyed) ListBySymbol(ctx context.Context, symbol string, limit int) ([]contracts.StoredRow, error) {
	return k.backend.ListBySymbol(ctx, symbol, limit)
}

// Count returns the number of stored rows. It never creates the schema.
func (k *Keyed) Count(ctx context.Context) (int64, error) {
	return k.backend.Count(ctx)
}

// Driver names the backend
func (k *Keyed) Driver() string {
	return k.backend.Name()
}

// Close closes the backend
func (k *Keyed) Close() error {
	return k.backend.Close()
}

// lockSymbols locks every symbol in sorted order and returns the unlock func.
// Sorted acquisition keeps multi-symbol batches from deadlocking each other.
func (k *Keyed) lockSymbols(symbols map[string]struct{}) func() {
	names := make([]string, 0, len(symbols))
	for s := range symbols {
		names = append(names, s)
	}
	sort.Strings(names)

	held := make([]*sync.Mutex, 0, len(names))
	for _, name := range names {
		mu := k.symbolLock(name)
		mu.Lock()
		held = append(held, mu)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (k *Keyed) symbolLock(symbol string) *sync.Mutex {
	k.locksMu.Lock()
	defer k.locksMu.Unlock()

	mu, ok := k.locks[symbol]
	if !ok {
		mu = &sync.Mutex{}
		k.locks[symbol] = mu
	}
	return mu
}
