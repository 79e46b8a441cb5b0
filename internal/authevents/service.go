package authevents

import (
	"context"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
	"github.com/silentauth/silentauth/internal/logging"
	"github.com/silentauth/silentauth/internal/metrics"
)

// StatsWindow is the lookback for dashboard statistics.
const StatsWindow = 24 * time.Hour

// DeviceCounter reports how many devices were active since a point in time.
type DeviceCounter interface {
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// Service records events and computes dashboard statistics.
type Service struct {
	store   Store
	devices DeviceCounter
}

// NewService creates an auth event service. devices may be nil.
func NewService(store Store, devices DeviceCounter) *Service {
	return &Service{store: store, devices: devices}
}

// RecordAuth logs one authentication outcome. Persistence failures are
// logged, not surfaced; event recording never fails an authentication.
func (s *Service) RecordAuth(ctx context.Context, userID, eventType string, confidence float64, sessionID string) {
	e := &Event{
		ID:         idgen.WithPrefix("evt_"),
		UserID:     userID,
		SessionID:  sessionID,
		EventType:  eventType,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}
	if err := s.store.Save(ctx, e); err != nil {
		logging.L(ctx).Error("failed to record auth event",
			"user_id", userID, "event_type", eventType, "error", err)
		return
	}
	metrics.AuthEventsTotal.WithLabelValues(eventType).Inc()
}

// Stats aggregates the last StatsWindow of events. Success covers both
// silent auth and explicit success outcomes.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	since := time.Now().Add(-StatsWindow)
	events, err := s.store.ListSince(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalAuthentications: len(events),
		AverageConfidence:    DefaultAverageConfidence,
	}

	if len(events) > 0 {
		var success, silent, stepUp int
		var confidenceSum float64
		scored := 0
		for _, e := range events {
			switch e.EventType {
			case TypeSilentAuth:
				silent++
				success++
			case TypeSuccess:
				success++
			case TypeStepUp:
				stepUp++
			}
			if e.Confidence > 0 {
				confidenceSum += e.Confidence
				scored++
			}
		}
		total := float64(len(events))
		stats.SuccessRate = float64(success) / total
		stats.SilentAuthRate = float64(silent) / total
		stats.StepUpRate = float64(stepUp) / total
		if scored > 0 {
			stats.AverageConfidence = confidenceSum / float64(scored)
		}
	}

	if s.devices != nil {
		if n, err := s.devices.CountActiveSince(ctx, since); err == nil {
			stats.ActiveDevices = n
		}
	}

	return stats, nil
}
