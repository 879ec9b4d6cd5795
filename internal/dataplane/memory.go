package dataplane

import (
	"sync"
)

// MemoryStore keeps records in memory. Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	nextSeq int64
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (m *MemoryStore) Save(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.nextSeq++
	rec.Sequence = m.nextSeq
	// Copy body to avoid retaining caller's slice
	rec.Body = append([]byte(nil), rec.Body...)
	m.records = append(m.records, rec)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(messageType string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		if messageType != "" && rec.Type != messageType {
			continue
		}
		rec.Body = append([]byte(nil), rec.Body...)
		out = append(out, rec)
	}
	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.records), nil
}

// Reset implements Store.
func (m *MemoryStore) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.records = nil
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}
