package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// MemoryStore keeps simulations in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{records: make(map[string]Record), now: clock}
}

// Save stores analysis under a new reference code.
func (m *MemoryStore) Save(ctx context.Context, analysis credit.Analysis) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		record := newRecord(analysis, m.now())
		if _, exists := m.records[record.Code]; exists {
			continue
		}
		m.records[record.Code] = record
		return record, nil
	}
	return Record{}, fmt.Errorf("failed to allocate a unique reference code after %d attempts", maxCodeAttempts)
}

// Get returns the record for code.
func (m *MemoryStore) Get(ctx context.Context, code string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[code]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

// Len returns the number of stored simulations.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
