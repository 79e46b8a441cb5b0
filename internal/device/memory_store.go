package device

import (
	"context"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]*Device // userID + "\x00" + fingerprint → device
}

// NewMemoryStore creates an in-memory device store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{devices: make(map[string]*Device)}
}

func key(userID, fingerprint string) string {
	return userID + "\x00" + fingerprint
}

func (s *MemoryStore) Observe(ctx context.Context, userID, fingerprint, userAgent string) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	d, ok := s.devices[key(userID, fingerprint)]
	if !ok {
		d = &Device{
			ID:          idgen.WithPrefix("dev_"),
			UserID:      userID,
			Fingerprint: fingerprint,
			UserAgent:   userAgent,
			SeenCount:   1,
			TrustScore:  InitialTrustScore,
			FirstSeen:   now,
			LastSeen:    now,
		}
		s.devices[key(userID, fingerprint)] = d
	} else {
		d.SeenCount++
		d.TrustScore = min1(d.TrustScore + TrustIncrement)
		d.LastSeen = now
		if userAgent != "" {
			d.UserAgent = userAgent
		}
	}

	cp := *d
	return &cp, nil
}

func (s *MemoryStore) GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[key(userID, fingerprint)]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Device
	for _, d := range s.devices {
		if d.UserID == userID {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, d := range s.devices {
		if d.LastSeen.After(since) {
			count++
		}
	}
	return count, nil
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
