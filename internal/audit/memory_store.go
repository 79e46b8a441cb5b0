package audit

import (
	"context"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
// The log is capped so a long-running demo process does not grow unbounded.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	cap     int
}

const defaultMemoryCap = 10000

// NewMemoryStore creates an in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cap: defaultMemoryCap}
}

func (s *MemoryStore) Append(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = idgen.WithPrefix("aud_")
	}
	if e.ActorType == "" {
		e.ActorType = ActorUser
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	cp := *e
	s.entries = append(s.entries, &cp)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var result []*Entry
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if f.Matches(s.entries[i]) {
			cp := *s.entries[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}
