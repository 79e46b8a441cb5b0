package experiments

import (
	"context"
	"sync"
	"time"

	"github.com/silentauth/silentauth/internal/logging"
)

// runningCacheTTL bounds how stale the cached running experiment may be.
// Assignment happens on the hot path of every risk assessment, so the
// live experiment is not re-read from storage per request.
const runningCacheTTL = 30 * time.Second

const lookupTimeout = 2 * time.Second

// Service assigns users to experiment arms and feeds outcomes back into
// the experiment counters.
type Service struct {
	store Store

	mu        sync.Mutex
	cached    *Experiment
	fetchedAt time.Time
}

// NewService creates an experiment service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// running returns the live experiment, consulting storage at most once
// per cache window. Lookup failures behave as "no experiment running".
func (s *Service) running() *Experiment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.fetchedAt) < runningCacheTTL {
		return s.cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	exp, err := s.store.Running(ctx)
	if err != nil {
		logging.L(ctx).Warn("failed to load running experiment", "error", err)
		return s.cached
	}
	s.cached = exp
	s.fetchedAt = time.Now()
	return s.cached
}

// PolicyFor returns the policy name the live experiment assigns this user,
// or assigned=false when no experiment is running.
func (s *Service) PolicyFor(userID string) (string, bool) {
	exp := s.running()
	if exp == nil {
		return "", false
	}
	return exp.PolicyForGroup(exp.AssignGroup(userID)), true
}

// RecordAuth folds an authentication outcome into the live experiment's
// counters. Arm membership is recomputed from the user ID, so the sample
// lands in the same bucket the assessment used. Silent authentication
// counts as the experiment's success event.
func (s *Service) RecordAuth(ctx context.Context, userID, eventType string, confidence float64, sessionID string) {
	exp := s.running()
	if exp == nil {
		return
	}

	group := exp.AssignGroup(userID)
	success := eventType == "silent_auth"
	if err := s.store.RecordSample(ctx, exp.ID, group, success); err != nil {
		logging.L(ctx).Warn("failed to record experiment sample",
			"experiment_id", exp.ID, "group", group, "error", err)
	}
}
