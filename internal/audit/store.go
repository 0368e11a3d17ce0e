// Package audit holds the append-only audit trail for pipeline results.
package audit

import (
	"context"
	"sync"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
)

// InMemoryStore is an append-only audit store for development and tests.
// Entries are kept in append order; appends are serialized.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
	ids     map[id.EntryID]struct{}
	latest  map[id.ResultID]int // index into entries
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		ids:    make(map[id.EntryID]struct{}),
		latest: make(map[id.ResultID]int),
	}
}

// Append stores a copy of entry. Entry IDs are unique; a repeated ID is rejected.
func (s *InMemoryStore) Append(_ context.Context, entry models.AuditEntry) error {
	entry.Snapshot = entry.Snapshot.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[entry.ID]; dup {
		return sentinel.ErrAlreadyUsed
	}
	s.ids[entry.ID] = struct{}{}
	s.latest[entry.ResultID] = len(s.entries)
	s.entries = append(s.entries, entry)
	return nil
}

// Query returns matching entries in append order, up to filter.Limit.
func (s *InMemoryStore) Query(_ context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AuditEntry, 0)
	for _, e := range s.entries {
		if !filter.Matches(e) {
			continue
		}
		e.Snapshot = e.Snapshot.Clone()
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Latest returns the most recently appended entry for resultID.
func (s *InMemoryStore) Latest(_ context.Context, resultID id.ResultID) (*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.latest[resultID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e := s.entries[i]
	e.Snapshot = e.Snapshot.Clone()
	return &e, nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ ports.AuditSink = (*InMemoryStore)(nil)
