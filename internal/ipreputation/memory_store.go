package ipreputation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu  sync.RWMutex
	ips map[string]*Reputation
}

// NewMemoryStore creates an in-memory IP reputation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ips: make(map[string]*Reputation)}
}

func (s *MemoryStore) Get(ctx context.Context, ip string) (*Reputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ips[ip]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) RecordAttempt(ctx context.Context, ip string, outcome Outcome) (*Reputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	r, ok := s.ips[ip]
	if !ok {
		r = &Reputation{
			ID:              idgen.WithPrefix("ipr_"),
			IPAddress:       ip,
			ReputationScore: NeutralScore,
			LastSeen:        now,
			CreatedAt:       now,
		}
		s.ips[ip] = r
	}
	r.Apply(outcome, now)

	cp := *r
	return &cp, nil
}

func (s *MemoryStore) SetBlacklist(ctx context.Context, ip string, blacklisted bool, reason string) (*Reputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	r, ok := s.ips[ip]
	if !ok {
		r = &Reputation{
			ID:              idgen.WithPrefix("ipr_"),
			IPAddress:       ip,
			ReputationScore: NeutralScore,
			LastSeen:        now,
			CreatedAt:       now,
		}
		s.ips[ip] = r
	}
	r.Blacklisted = blacklisted
	r.BlacklistReason = reason
	if !blacklisted {
		r.BlacklistReason = ""
	}

	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListBlacklisted(ctx context.Context) ([]*Reputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Reputation
	for _, r := range s.ips {
		if r.Blacklisted {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeen.After(result[j].LastSeen)
	})
	return result, nil
}
