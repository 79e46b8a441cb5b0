package geo

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu        sync.RWMutex
	locations map[string]*Location
}

// NewMemoryStore creates an in-memory location store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locations: make(map[string]*Location)}
}

func (s *MemoryStore) LastLocation(ctx context.Context, userID string) (*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[userID]
	if !ok {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

func (s *MemoryStore) SaveLocation(ctx context.Context, loc *Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *loc
	s.locations[loc.UserID] = &cp
	return nil
}
