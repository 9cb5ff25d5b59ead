// Package store persists normalized coach records behind a small keyed
// interface. The pipeline only decides whether to write; schema,
// indexing, and transaction boundaries belong here.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/prevostgo/prevostgo/internal/inventory"
)

// ErrNotFound is returned by Get for an unknown identity.
var ErrNotFound = errors.New("record not found")

// Store is the keyed record store the reconciler writes against.
type Store interface {
	// Get returns the stored record for an identity, or ErrNotFound.
	Get(ctx context.Context, identity string) (*inventory.Record, error)
	// Insert stores a new record.
	Insert(ctx context.Context, rec *inventory.Record) error
	// Update rewrites an existing record's mutable fields.
	Update(ctx context.Context, rec *inventory.Record) error
}

// Cleaner is implemented by stores that can purge legacy invalid rows
// (bare-brand title, year zero) left behind by earlier scraper versions.
type Cleaner interface {
	DeleteInvalid(ctx context.Context, brand string) (int, error)
}

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	mu      sync.RWMutex
	records map[string]inventory.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]inventory.Record)}
}

func (m *Memory) Get(_ context.Context, identity string) (*inventory.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[identity]
	if !ok {
		return nil, ErrNotFound
	}
	copied := rec
	copied.Features = append([]string(nil), rec.Features...)
	copied.Images = append([]string(nil), rec.Images...)
	return &copied, nil
}

func (m *Memory) Insert(_ context.Context, rec *inventory.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Identity] = *rec
	return nil
}

func (m *Memory) Update(_ context.Context, rec *inventory.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Identity]; !ok {
		return ErrNotFound
	}
	m.records[rec.Identity] = *rec
	return nil
}

func (m *Memory) DeleteInvalid(_ context.Context, brand string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, rec := range m.records {
		if rec.Title == brand && rec.Year == 0 {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// All returns every stored record ordered by year descending, then
// identity, for stable export output.
func (m *Memory) All() []inventory.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]inventory.Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Year != records[j].Year {
			return records[i].Year > records[j].Year
		}
		return records[i].Identity < records[j].Identity
	})
	return records
}
