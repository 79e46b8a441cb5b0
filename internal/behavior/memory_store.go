package behavior

import (
	"context"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	samples map[string][]*Sample // userID → samples in insertion order
}

// NewMemoryStore creates an in-memory sample store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{samples: make(map[string][]*Sample)}
}

func (s *MemoryStore) Save(ctx context.Context, sample *Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sample
	if cp.ID == "" {
		cp.ID = idgen.WithPrefix("smp_")
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	sample.ID = cp.ID
	sample.CreatedAt = cp.CreatedAt

	s.samples[cp.UserID] = append(s.samples[cp.UserID], &cp)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.samples[userID]
	result := make([]*Sample, len(all))
	for i, sm := range all {
		cp := *sm
		result[i] = &cp
	}
	return result, nil
}

func (s *MemoryStore) CountByUser(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[userID]), nil
}
