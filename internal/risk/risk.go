// Package risk implements composite risk scoring for authentication
// requests.
//
// Each assessment combines 3 independently fetched signals: device
// familiarity, TLS fingerprint trust, and behavioral anomaly scoring.
// The weighted combination maps to a decision: silently authenticate,
// demand step-up verification, or block. Weights and thresholds come
// from the caller's policy, so experiments can run two configurations
// against the same engine.
package risk

import (
	"context"
	"time"

	"github.com/silentauth/silentauth/internal/anomaly"
	"github.com/silentauth/silentauth/internal/behavior"
)

// Decision represents the engine's verdict on an authentication request.
type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionStepUp Decision = "step_up"
	DecisionBlock  Decision = "block"
)

// Sub-score defaults for absent or unmatched signals.
const (
	// UnknownDeviceScore applies when the device is not in the user's history.
	UnknownDeviceScore = 0.3
	// NoDeviceScore applies when the request carries no device ID at all.
	NoDeviceScore = 0.5
	// UnmatchedTLSScore applies when a supplied fingerprint has no stored match.
	UnmatchedTLSScore = 0.5
	// AbsentTLSScore applies when no fingerprint was captured. Absence is
	// treated more charitably than a mismatch.
	AbsentTLSScore = 0.7
)

// DeviceFamiliarityWeight and DeviceTrustWeight combine repeated use with
// the device's accumulated trust. Repeated use dominates.
const (
	DeviceFamiliarityWeight = 0.6
	DeviceTrustWeight       = 0.4
	DeviceFamiliarityCap    = 10 // uses until familiarity saturates
)

// Request carries the inputs for one composite assessment.
type Request struct {
	UserID         string           `json:"userId"`
	DeviceID       string           `json:"deviceId,omitempty"`
	TLSFingerprint string           `json:"tlsFingerprint,omitempty"`
	SessionID      string           `json:"sessionId,omitempty"`
	Sample         *behavior.Sample `json:"sample"`
}

// Assessment is the persisted result of one composite risk calculation.
// Created once per authentication attempt; never mutated.
type Assessment struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	SessionID       string             `json:"sessionId,omitempty"`
	DeviceScore     float64            `json:"deviceScore"`
	TLSScore        float64            `json:"tlsScore"`
	BehavioralScore float64            `json:"behavioralScore"`
	OverallScore    float64            `json:"overallScore"`
	Factors         map[string]float64 `json:"factors"`
	Threshold       float64            `json:"threshold"`
	Passed          bool               `json:"passed"`
	Decision        Decision           `json:"decision"`
	Anomaly         *anomaly.Result    `json:"anomaly,omitempty"`
	EvaluatedAt     time.Time          `json:"evaluatedAt"`
}

// DeviceHistory is what the device collaborator knows about one
// user/device pair.
type DeviceHistory struct {
	SeenCount  int
	TrustScore float64
}

// DeviceLookup resolves a user's history with a device.
type DeviceLookup interface {
	DeviceHistory(ctx context.Context, userID, deviceID string) (*DeviceHistory, error)
}

// FingerprintLookup resolves a TLS fingerprint's stored trust score by
// JA3 or JA4 hash. Returns nil when the hash has no match.
type FingerprintLookup interface {
	TrustByHash(ctx context.Context, hash string) (*float64, error)
}

// BaselineSource resolves a user's current behavioral baseline, nil when
// the user has insufficient history.
type BaselineSource interface {
	Baseline(ctx context.Context, userID string) (*behavior.BaselineProfile, error)
}

// Store persists risk assessments for the audit trail.
type Store interface {
	Record(ctx context.Context, a *Assessment) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Assessment, error)
}
