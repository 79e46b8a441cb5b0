// Package behavior collects behavioral biometric samples and derives
// per-user statistical baselines from them.
//
// Samples arrive as aggregated feature vectors (mouse dynamics, keystroke
// timing, scroll patterns) from the client-side trackers. Seven of the
// features are tracked for baseline purposes; a user needs at least
// MinSamplesForBaseline stored samples before a baseline exists at all.
package behavior

import (
	"context"
	"time"
)

// MinSamplesForBaseline is the minimum number of stored samples a user
// needs before a baseline profile can be derived. Below this, callers get
// an explicit "no baseline" result rather than a zero-filled profile.
const MinSamplesForBaseline = 3

// TrackedFeatures lists the seven features that participate in baseline
// and anomaly computation, in canonical order.
var TrackedFeatures = []string{
	"mouseVelocity",
	"mouseAcceleration",
	"dwellTime",
	"flightTime",
	"typingSpeed",
	"straightLineRatio",
	"curveComplexity",
}

// Sample is one aggregated observation of a user's interaction dynamics.
// Every feature is optional; trackers that produced no data leave the
// field nil rather than zero.
type Sample struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	MouseVelocity     *float64 `json:"mouseVelocity,omitempty"`
	MouseAcceleration *float64 `json:"mouseAcceleration,omitempty"`
	ClickInterval     *float64 `json:"clickInterval,omitempty"`
	DwellTime         *float64 `json:"dwellTime,omitempty"`
	FlightTime        *float64 `json:"flightTime,omitempty"`
	TypingSpeed       *float64 `json:"typingSpeed,omitempty"`
	ScrollSpeed       *float64 `json:"scrollSpeed,omitempty"`
	ScrollFrequency   *float64 `json:"scrollFrequency,omitempty"`
	StraightLineRatio *float64 `json:"straightLineRatio,omitempty"`
	CurveComplexity   *float64 `json:"curveComplexity,omitempty"`
}

// Feature returns the named tracked feature value, or nil if absent.
func (s *Sample) Feature(name string) *float64 {
	switch name {
	case "mouseVelocity":
		return s.MouseVelocity
	case "mouseAcceleration":
		return s.MouseAcceleration
	case "dwellTime":
		return s.DwellTime
	case "flightTime":
		return s.FlightTime
	case "typingSpeed":
		return s.TypingSpeed
	case "straightLineRatio":
		return s.StraightLineRatio
	case "curveComplexity":
		return s.CurveComplexity
	default:
		return nil
	}
}

// FeatureStats is the per-feature statistical summary in a baseline.
type FeatureStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// BaselineProfile is a user's statistical summary, derived on demand from
// the full sample history. Features with no values across the history are
// absent from the map.
type BaselineProfile struct {
	UserID      string                  `json:"userId"`
	SampleCount int                     `json:"sampleCount"`
	Features    map[string]FeatureStats `json:"features"`
	ComputedAt  time.Time               `json:"computedAt"`
}

// Store persists behavioral samples.
type Store interface {
	Save(ctx context.Context, sample *Sample) error
	ListByUser(ctx context.Context, userID string) ([]*Sample, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}
