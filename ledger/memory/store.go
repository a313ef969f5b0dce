// Package memory implements an in-process ledger.Writer, useful for local
// development and tests where no Postgres instance is configured.
package memory

import (
	"context"
	"sync"

	"github.com/cexlabs/hypervisor/ledger"
)

// Store implements ledger.Writer by appending receipts to a slice guarded
// by a single mutex.
type Store struct {
	mu       sync.RWMutex
	receipts []ledger.Receipt
}

// NewStore returns an empty in-memory ledger.
func NewStore() *Store {
	return &Store{}
}

// Record appends r to the in-memory log.
func (s *Store) Record(ctx context.Context, r ledger.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

// All returns a copy of every receipt recorded so far. Intended for tests.
func (s *Store) All() []ledger.Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error { return nil }

var _ ledger.Writer = (*Store)(nil)
