// Package sessions tracks authenticated sessions and their rolling
// confidence. Sessions whose confidence collapses get flagged for the
// dashboard's review queue.
package sessions

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session matches the ID.
var ErrNotFound = errors.New("session not found")

// Status values for a session's lifecycle.
type Status string

const (
	StatusActive     Status = "active"
	StatusFlagged    Status = "flagged"
	StatusTerminated Status = "terminated"
)

// Session is one authenticated browser session.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	DeviceID     string    `json:"deviceId,omitempty"`
	Status       Status    `json:"status"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Touch updates a session's confidence and activity timestamp.
	Touch(ctx context.Context, id string, confidence float64) error
	SetStatus(ctx context.Context, id string, status Status) error
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Session, error)
}
