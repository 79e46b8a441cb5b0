package experiments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu          sync.RWMutex
	experiments map[string]*Experiment
}

// NewMemoryStore creates an in-memory experiment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{experiments: make(map[string]*Experiment)}
}

func (s *MemoryStore) Create(ctx context.Context, exp *Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp.ID == "" {
		exp.ID = idgen.WithPrefix("exp_")
	}
	if exp.Status == "" {
		exp.Status = StatusDraft
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = time.Now()
	}

	cp := *exp
	s.experiments[exp.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *exp
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Experiment, 0, len(s.experiments))
	for _, exp := range s.experiments {
		cp := *exp
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) Running(ctx context.Context) (*Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *Experiment
	for _, exp := range s.experiments {
		if exp.Status != StatusRunning {
			continue
		}
		if newest == nil || exp.CreatedAt.After(newest.CreatedAt) {
			newest = exp
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status Status) (*Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now()
	exp.Status = status
	switch status {
	case StatusRunning:
		if exp.StartedAt == nil {
			exp.StartedAt = &now
		}
	case StatusCompleted:
		exp.EndedAt = &now
	}

	cp := *exp
	return &cp, nil
}

func (s *MemoryStore) RecordSample(ctx context.Context, id string, group Group, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[id]
	if !ok {
		return ErrNotFound
	}

	exp.TotalSamples++
	if group == GroupVariant {
		exp.VariantSamples++
		if success {
			exp.VariantSuccesses++
		}
	} else {
		exp.ControlSamples++
		if success {
			exp.ControlSuccesses++
		}
	}
	return nil
}
