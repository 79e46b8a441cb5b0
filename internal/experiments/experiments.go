// Package experiments runs A/B tests over decision policies. Users are
// deterministically split between a control and a variant policy, and the
// assignment plus its outcome feed the experiment's sample counters.
package experiments

import (
	"context"
	"errors"
	"hash/fnv"
	"time"
)

// ErrNotFound is returned when no experiment matches.
var ErrNotFound = errors.New("experiment not found")

// Status is an experiment's lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Group names the arm a user lands in.
type Group string

const (
	GroupControl Group = "control"
	GroupVariant Group = "variant"
)

// Experiment is one A/B test comparing two decision policies.
type Experiment struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Status        Status  `json:"status"`
	ControlPolicy string  `json:"controlPolicy"`
	VariantPolicy string  `json:"variantPolicy"`
	TrafficSplit  float64 `json:"trafficSplit"`
	PrimaryMetric string  `json:"primaryMetric"`

	TotalSamples     int `json:"totalSamples"`
	ControlSamples   int `json:"controlSamples"`
	VariantSamples   int `json:"variantSamples"`
	ControlSuccesses int `json:"controlSuccesses"`
	VariantSuccesses int `json:"variantSuccesses"`

	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Validate rejects experiments that could never assign users sensibly.
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return errors.New("experiment name is required")
	}
	if e.ControlPolicy == "" || e.VariantPolicy == "" {
		return errors.New("both controlPolicy and variantPolicy are required")
	}
	if e.TrafficSplit < 0 || e.TrafficSplit > 1 {
		return errors.New("trafficSplit must be between 0 and 1")
	}
	return nil
}

// SuccessRate returns the success fraction for one arm, or 0 with no samples.
func (e *Experiment) SuccessRate(g Group) float64 {
	samples, successes := e.ControlSamples, e.ControlSuccesses
	if g == GroupVariant {
		samples, successes = e.VariantSamples, e.VariantSuccesses
	}
	if samples == 0 {
		return 0
	}
	return float64(successes) / float64(samples)
}

// AssignGroup deterministically buckets a user into control or variant.
// The same user always lands in the same arm for the same experiment, so
// assignment needs no stored state.
func (e *Experiment) AssignGroup(userID string) Group {
	h := fnv.New32a()
	_, _ = h.Write([]byte(e.ID))
	_, _ = h.Write([]byte(userID))
	bucket := float64(h.Sum32()) / float64(^uint32(0))
	if bucket < e.TrafficSplit {
		return GroupVariant
	}
	return GroupControl
}

// PolicyForGroup maps an arm to its policy name.
func (e *Experiment) PolicyForGroup(g Group) string {
	if g == GroupVariant {
		return e.VariantPolicy
	}
	return e.ControlPolicy
}

// Store persists experiments.
type Store interface {
	Create(ctx context.Context, exp *Experiment) error
	Get(ctx context.Context, id string) (*Experiment, error)
	List(ctx context.Context) ([]*Experiment, error)

	// Running returns the currently running experiment, or nil when
	// no experiment is live.
	Running(ctx context.Context) (*Experiment, error)

	// SetStatus transitions an experiment's lifecycle state.
	SetStatus(ctx context.Context, id string, status Status) (*Experiment, error)

	// RecordSample increments the sample counter for one arm, plus the
	// success counter when the assessment allowed silently.
	RecordSample(ctx context.Context, id string, group Group, success bool) error
}
