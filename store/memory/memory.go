// Package memory keeps stage records in process memory. Records are lost on
// exit, so resume only works within one process.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/defistate/token-launcher-go/store"
)

// Store is an in-memory store.Store.
type Store struct {
	mu      sync.RWMutex
	records map[string][]store.Record
	keys    map[string]map[string]struct{}
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string][]store.Record),
		keys:    make(map[string]map[string]struct{}),
	}
}

func (s *Store) Append(_ context.Context, r *store.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.keys[r.RequestID]
	if !ok {
		keys = make(map[string]struct{})
		s.keys[r.RequestID] = keys
	}
	if _, dup := keys[r.Key()]; dup {
		return store.ErrDuplicateKey
	}
	keys[r.Key()] = struct{}{}

	rec := *r
	rec.Data = slices.Clone(r.Data)
	s.records[r.RequestID] = append(s.records[r.RequestID], rec)
	return nil
}

func (s *Store) Load(_ context.Context, requestID string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.records[requestID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(records), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
