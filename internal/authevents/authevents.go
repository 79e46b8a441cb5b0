// Package authevents records authentication outcomes and aggregates them
// into the dashboard's 24-hour statistics.
package authevents

import (
	"context"
	"time"
)

// Event types recorded per authentication attempt.
const (
	TypeSilentAuth = "silent_auth"
	TypeStepUp     = "step_up"
	TypeSuccess    = "success"
	TypeFailed     = "failed"
)

// DefaultAverageConfidence is reported when no scores exist in the window.
const DefaultAverageConfidence = 0.75

// Event is one recorded authentication outcome.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	SessionID  string    `json:"sessionId,omitempty"`
	EventType  string    `json:"eventType"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stats is the dashboard's aggregate view over a time window.
type Stats struct {
	TotalAuthentications int     `json:"totalAuthentications"`
	SuccessRate          float64 `json:"successRate"`
	SilentAuthRate       float64 `json:"silentAuthRate"`
	StepUpRate           float64 `json:"stepUpRate"`
	AverageConfidence    float64 `json:"averageConfidence"`
	ActiveDevices        int     `json:"activeDevices"`
}

// Store persists authentication events.
type Store interface {
	Save(ctx context.Context, e *Event) error
	ListSince(ctx context.Context, since time.Time) ([]*Event, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error)
}
