package tlsprint

import (
	"context"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	byJA3  map[string]*Fingerprint
	byJA4  map[string]*Fingerprint
	recent []*Fingerprint
}

// NewMemoryStore creates an in-memory fingerprint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byJA3: make(map[string]*Fingerprint),
		byJA4: make(map[string]*Fingerprint),
	}
}

func (s *MemoryStore) Observe(ctx context.Context, ja3, ja4 string) (*Fingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	fp := s.byJA3[ja3]
	if fp == nil && ja4 != "" {
		fp = s.byJA4[ja4]
	}

	if fp == nil {
		fp = &Fingerprint{
			ID:         idgen.WithPrefix("tls_"),
			JA3Hash:    ja3,
			JA4Hash:    ja4,
			SeenCount:  1,
			TrustScore: InitialTrustScore,
			FirstSeen:  now,
			LastSeen:   now,
		}
		if ja3 != "" {
			s.byJA3[ja3] = fp
		}
		if ja4 != "" {
			s.byJA4[ja4] = fp
		}
		s.recent = append(s.recent, fp)
	} else {
		fp.SeenCount++
		fp.TrustScore = min1(fp.TrustScore + TrustIncrement)
		fp.LastSeen = now
		if fp.JA4Hash == "" && ja4 != "" {
			fp.JA4Hash = ja4
			s.byJA4[ja4] = fp
		}
	}

	cp := *fp
	return &cp, nil
}

func (s *MemoryStore) GetByHash(ctx context.Context, hash string) (*Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp := s.byJA3[hash]
	if fp == nil {
		fp = s.byJA4[hash]
	}
	if fp == nil {
		return nil, nil
	}
	cp := *fp
	return &cp, nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Fingerprint
	for i := len(s.recent) - 1; i >= 0 && len(result) < limit; i-- {
		cp := *s.recent[i]
		result = append(result, &cp)
	}
	return result, nil
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
