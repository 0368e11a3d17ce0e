// Package continuation stores stage-2 suspensions between Validate and Resume.
package continuation

import (
	"context"
	"sync"
	"time"

	"tiergate/internal/pipeline/ports"
	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
)

type memoryItem struct {
	suspension ports.Suspension
	expiresAt  time.Time
}

// MemoryStore keeps suspensions in process. Expired entries are dropped lazily.
type MemoryStore struct {
	mu    sync.Mutex
	items map[id.ContinuationToken]memoryItem
	now   func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: make(map[id.ContinuationToken]memoryItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a copy of suspension for ttl, replacing any entry with the same token.
func (s *MemoryStore) Save(_ context.Context, suspension ports.Suspension, ttl time.Duration) error {
	suspension.Action = suspension.Action.Clone()
	suspension.Stage1 = suspension.Stage1.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[suspension.Token] = memoryItem{suspension: suspension, expiresAt: s.now().Add(ttl)}
	return nil
}

// Load returns a copy of the suspension, or sentinel.ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, token id.ContinuationToken) (*ports.Suspension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.live(token)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := item.suspension
	out.Action = out.Action.Clone()
	out.Stage1 = out.Stage1.Clone()
	return &out, nil
}

// Delete claims token. Only the first caller succeeds.
func (s *MemoryStore) Delete(_ context.Context, token id.ContinuationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(token); !ok {
		return sentinel.ErrNotFound
	}
	delete(s.items, token)
	return nil
}

// live returns the unexpired item for token. Callers hold mu.
func (s *MemoryStore) live(token id.ContinuationToken) (memoryItem, bool) {
	item, ok := s.items[token]
	if !ok {
		return memoryItem{}, false
	}
	if !s.now().Before(item.expiresAt) {
		delete(s.items, token)
		return memoryItem{}, false
	}
	return item, true
}

var _ ports.ContinuationStore = (*MemoryStore)(nil)
