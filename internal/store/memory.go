package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/pkg/config"
)

// MemoryBackend keeps rows in a map keyed by "symbol|date".
// Used for tests and dry runs.
type MemoryBackend struct {
	mu      sync.RWMutex
	rows    map[string]contracts.StoredRow
	created bool
}

// Compile-time interface check.
var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{rows: make(map[string]contracts.StoredRow)}
}

// NewMemory returns a guarded in-memory store
func NewMemory() *Keyed {
	return New(NewMemoryBackend())
}

func memoryKey(symbol, date string) string {
	return fmt.Sprintf("%s|%s", symbol, date)
}

// Name returns the driver name
func (m *MemoryBackend) Name() string {
	return config.DriverMemory
}

// CreateSchema marks the table as created
func (m *MemoryBackend) CreateSchema(ctx context.Context) error {
	m.mu.Lock()
	m.created = true
	m.mu.Unlock()
	return nil
}

// InsertIfAbsent adds rows whose key is not present yet
func (m *MemoryBackend) InsertIfAbsent(ctx context.Context, rows []contracts.StoredRow) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// reject the whole batch before touching the map
	for _, row := range rows {
		if row.Symbol == "" || row.Date == "" {
			return 0, fmt.Errorf("%w: %q %q", ErrInvalidKey, row.Symbol, row.Date)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, row := range rows {
		key := memoryKey(row.Symbol, row.Date)
		if _, exists := m.rows[key]; exists {
			continue
		}
		m.rows[key] = row
		inserted++
	}
	return inserted, nil
}

// ListBySymbol returns the newest limit rows for symbol, oldest first
func (m *MemoryBackend) ListBySymbol(ctx context.Context, symbol string, limit int) ([]contracts.StoredRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.created {
		return nil, ErrNotInitialized
	}

	var result []contracts.StoredRow
	for _, row := range m.rows {
		if row.Symbol == symbol {
			result = append(result, row)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

// Count returns the number of rows
func (m *MemoryBackend) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.created {
		return 0, ErrNotInitialized
	}
	return int64(len(m.rows)), nil
}

// Close is a no-op
func (m *MemoryBackend) Close() error {
	return nil
}
