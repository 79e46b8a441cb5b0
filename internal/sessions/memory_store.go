package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
	"github.com/silentauth/silentauth/internal/metrics"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Create(ctx context.Context, ses *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ses.ID == "" {
		ses.ID = idgen.WithPrefix("ses_")
	}
	now := time.Now()
	if ses.CreatedAt.IsZero() {
		ses.CreatedAt = now
	}
	ses.LastActivity = now
	if ses.Status == "" {
		ses.Status = StatusActive
	}

	cp := *ses
	s.sessions[cp.ID] = &cp
	s.order = append(s.order, cp.ID)
	metrics.ActiveSessions.Inc()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ses, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ses
	return &cp, nil
}

func (s *MemoryStore) Touch(ctx context.Context, id string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ses, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	ses.Confidence = confidence
	ses.LastActivity = time.Now()
	return nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ses, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if ses.Status == StatusActive && status != StatusActive {
		metrics.ActiveSessions.Dec()
	}
	ses.Status = status
	ses.LastActivity = time.Now()
	return nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status Status, limit int) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Session
	for i := len(s.order) - 1; i >= 0 && len(result) < limit; i-- {
		ses := s.sessions[s.order[i]]
		if ses.Status == status {
			cp := *ses
			result = append(result, &cp)
		}
	}
	return result, nil
}
