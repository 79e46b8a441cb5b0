package policy

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
// It starts seeded with the default policy.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

// NewMemoryStore creates an in-memory policy store seeded with defaults.
func NewMemoryStore() *MemoryStore {
	def := Default()
	def.UpdatedAt = time.Now()
	return &MemoryStore{
		policies: map[string]*Policy{def.Name: &def},
	}
}

func (s *MemoryStore) Get(ctx context.Context, name string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[name]
	if !ok {
		return nil, fmt.Errorf("policy not found: %s", name)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, p *Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.UpdatedAt = time.Now()
	s.policies[cp.Name] = &cp
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Policy, 0, len(s.policies))
	for _, p := range s.policies {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}
