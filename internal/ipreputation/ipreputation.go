// Package ipreputation tracks per-IP authentication outcomes and a derived
// reputation score. Blacklisted IPs are rejected before risk scoring runs.
package ipreputation

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an IP has no recorded history.
var ErrNotFound = errors.New("ip reputation not found")

// NeutralScore is the reputation of an IP with no attempt history.
const NeutralScore = 0.5

// Outcome classifies one authentication attempt from an IP.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked"
)

// Reputation is the accumulated standing of one IP address.
type Reputation struct {
	ID                 string    `json:"id"`
	IPAddress          string    `json:"ipAddress"`
	ReputationScore    float64   `json:"reputationScore"`
	TotalAttempts      int       `json:"totalAttempts"`
	SuccessfulAttempts int       `json:"successfulAttempts"`
	FailedAttempts     int       `json:"failedAttempts"`
	BlockedAttempts    int       `json:"blockedAttempts"`
	Blacklisted        bool      `json:"blacklisted"`
	BlacklistReason    string    `json:"blacklistReason,omitempty"`
	LastSeen           time.Time `json:"lastSeen"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Score recomputes the reputation from the attempt counters. An IP with
// no attempts sits at the neutral midpoint.
func (r *Reputation) Score() float64 {
	if r.TotalAttempts == 0 {
		return NeutralScore
	}
	return float64(r.SuccessfulAttempts) / float64(r.TotalAttempts)
}

// Apply folds one attempt outcome into the counters and rescores.
func (r *Reputation) Apply(outcome Outcome, at time.Time) {
	r.TotalAttempts++
	switch outcome {
	case OutcomeSuccess:
		r.SuccessfulAttempts++
	case OutcomeBlocked:
		r.BlockedAttempts++
	default:
		r.FailedAttempts++
	}
	r.ReputationScore = r.Score()
	r.LastSeen = at
}

// Store persists IP reputations.
type Store interface {
	// Get returns the reputation for an IP, or ErrNotFound.
	Get(ctx context.Context, ip string) (*Reputation, error)

	// RecordAttempt upserts the IP and folds in one attempt outcome.
	RecordAttempt(ctx context.Context, ip string, outcome Outcome) (*Reputation, error)

	// SetBlacklist marks or clears the blacklist flag for an IP,
	// creating the record if needed.
	SetBlacklist(ctx context.Context, ip string, blacklisted bool, reason string) (*Reputation, error)

	// ListBlacklisted returns all blacklisted IPs, most recently seen first.
	ListBlacklisted(ctx context.Context) ([]*Reputation, error)
}
