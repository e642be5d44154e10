// Package memory is the in-process storage backend. It backs tests and
// the default development configuration.
package memory

import (
	"context"
	"fmt"
	"sync"

	"splitbook/internal/core"
	"splitbook/internal/storage"
)

// Store keeps records in insertion order behind a mutex. Reads hand out
// copies so callers can never observe a half-applied mutation.
type Store struct {
	mu      sync.Mutex
	records []core.ExpenseRecord
	index   map[string]struct{} // live ids, guards duplicate inserts
}

func NewStore() *Store {
	return &Store{
		index: make(map[string]struct{}),
	}
}

func (s *Store) Insert(ctx context.Context, rec core.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[rec.ID]; exists {
		return fmt.Errorf("insert record %s: %w", rec.ID, storage.ErrDuplicateID)
	}
	s.records = append(s.records, rec)
	s.index[rec.ID] = struct{}{}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.ExpenseRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *Store) DeleteOne(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[id]; !exists {
		return false, nil
	}
	s.removeLocked(map[string]struct{}{id: {}})
	return true, nil
}

func (s *Store) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	victims := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, exists := s.index[id]; exists {
			victims[id] = struct{}{}
		}
	}
	s.removeLocked(victims)
	return int64(len(victims)), nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := int64(len(s.records))
	s.records = nil
	s.index = make(map[string]struct{})
	return prior, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) removeLocked(victims map[string]struct{}) {
	if len(victims) == 0 {
		return
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if _, gone := victims[r.ID]; gone {
			delete(s.index, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
}

var _ storage.Store = (*Store)(nil)
