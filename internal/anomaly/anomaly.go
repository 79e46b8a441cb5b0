// Package anomaly scores a behavioral sample against a user's baseline
// profile and raises alerts when behavior deviates from it.
//
// Each feature present in both the sample and the baseline gets a z-score,
// mapped through a piecewise-linear curve to an anomaly probability. The
// weighted probabilities aggregate into a trust score in [0, 1]; low trust
// or several individually anomalous features flip the anomaly flag.
package anomaly

import (
	"context"
	"time"
)

// Recommendation is the behavioral-only verdict for a scored sample.
type Recommendation string

const (
	RecommendAllow  Recommendation = "allow"
	RecommendStepUp Recommendation = "step_up"
	RecommendBlock  Recommendation = "block"
)

// Confidence reflects how much evidence backed the aggregate score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Behavioral-only recommendation thresholds on the trust score.
const (
	AllowThreshold  = 0.8
	StepUpThreshold = 0.5
)

// NoBaselineScore is the neutral trust score returned for users without
// enough history to have a baseline. The system cannot detect anomalies
// for them, so it asks for step-up rather than silently trusting.
const NoBaselineScore = 0.85

// FeatureWeights gives each tracked feature its relative contribution to
// the aggregate. Only the weights of features actually evaluated count
// toward normalization.
var FeatureWeights = map[string]float64{
	"mouseVelocity":     0.20,
	"mouseAcceleration": 0.15,
	"dwellTime":         0.20,
	"flightTime":        0.15,
	"typingSpeed":       0.20,
	"straightLineRatio": 0.05,
	"curveComplexity":   0.05,
}

// Factor is the per-feature outcome of comparing a current value to the
// baseline.
type Factor struct {
	Factor        string  `json:"factor"`
	CurrentValue  float64 `json:"currentValue"`
	ExpectedValue float64 `json:"expectedValue"`
	Deviation     float64 `json:"deviation"`
	IsAnomaly     bool    `json:"isAnomaly"`
}

// Result is the aggregate outcome of scoring one sample.
type Result struct {
	OverallScore   float64        `json:"overallScore"`
	AnomalyFactors []Factor       `json:"anomalyFactors"`
	IsAnomaly      bool           `json:"isAnomaly"`
	Confidence     Confidence     `json:"confidenceLevel"`
	Recommendation Recommendation `json:"recommendation"`
}

// Severity classifies an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

// Alert is a persisted record of an anomalous scoring outcome.
type Alert struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	AlertType   string    `json:"alertType"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	RiskScore   float64   `json:"riskScore"`
	Resolved    bool      `json:"resolved"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists anomaly alerts.
type Store interface {
	Save(ctx context.Context, alert *Alert) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Alert, error)
	ListRecent(ctx context.Context, limit int) ([]*Alert, error)
	Resolve(ctx context.Context, id string) error
}
