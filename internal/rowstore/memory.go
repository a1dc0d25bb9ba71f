package rowstore

import (
	"context"
	"sync"
)

type memTable struct {
	headers []string
	rows    [][]string
}

// MemoryStore is an in-process Store used by tests and local development.
// It mirrors the sheet semantics, including header reconciliation.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

// Append reconciles headers then appends row at the end of the table.
func (s *MemoryStore) Append(ctx context.Context, table string, headers, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ensure(table, headers)
	copied := make([]string, len(row))
	copy(copied, row)
	t.rows = append(t.rows, copied)
	return nil
}

// ReadAll returns a copy of every data row in append order.
func (s *MemoryStore) ReadAll(ctx context.Context, table string, headers []string) (*TableData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ensure(table, headers)
	data := &TableData{Headers: append([]string(nil), t.headers...)}
	for _, row := range t.rows {
		data.Rows = append(data.Rows, append([]string(nil), row...))
	}
	return data, nil
}

func (s *MemoryStore) ensure(table string, headers []string) *memTable {
	t, ok := s.tables[table]
	if !ok {
		t = &memTable{}
		s.tables[table] = t
	}
	if len(headers) > 0 && !headersMatch(headers, t.headers) {
		t.headers = append([]string(nil), headers...)
	}
	return t
}
