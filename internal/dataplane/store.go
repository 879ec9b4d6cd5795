// Package dataplane is a minimal local data plane: it accepts the analytics
// client's requests, checks the write key, and records what it received.
// It backs end-to-end tests and the dataplane-mock binary.
package dataplane

import (
	"encoding/json"
	"errors"
	"time"
)

// Store records received messages.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores one received request body.
	Save(rec Record) error

	// List returns received records of the given type, oldest first.
	// An empty type returns every record.
	List(messageType string) ([]Record, error)

	// Count returns the number of stored records.
	Count() (int, error)

	// Reset removes every record.
	Reset() error

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one request accepted by the collector.
type Record struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	WriteKey   string          `json:"write_key"`
	Body       json.RawMessage `json:"body"`
	ReceivedAt time.Time       `json:"received_at"`
	Sequence   int64           `json:"sequence"`
}

// Sentinel errors for store operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("dataplane store closed")
)
