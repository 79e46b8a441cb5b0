// Package policy holds the tunable decision configuration for composite
// risk scoring: signal weights, the silent-auth threshold, and the step-up
// method. Policies are passed into each assessment call rather than read
// from global state, so an experiment can run two configurations side by
// side.
package policy

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Default thresholds and weights for composite risk decisions.
const (
	DefaultSilentAuthThreshold = 0.75
	DefaultBlockThreshold      = 0.45
	DefaultAlertThreshold      = 0.45

	DefaultDeviceWeight     = 0.35
	DefaultTLSWeight        = 0.25
	DefaultBehavioralWeight = 0.40
)

// StepUpMethod is the challenge used when silent auth fails.
type StepUpMethod string

const (
	StepUpOTP      StepUpMethod = "otp"
	StepUpEmail    StepUpMethod = "email"
	StepUpSecurity StepUpMethod = "security_question"
)

// Policy is one named decision configuration.
type Policy struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	SilentAuthThreshold float64      `json:"silentAuthThreshold"`
	BlockThreshold      float64      `json:"blockThreshold"`
	DeviceWeight        float64      `json:"deviceWeight"`
	TLSWeight           float64      `json:"tlsWeight"`
	BehavioralWeight    float64      `json:"behavioralWeight"`
	StepUpMethod        StepUpMethod `json:"stepUpMethod"`
	AlertThreshold      float64      `json:"alertThreshold"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// Default returns the stock policy.
func Default() Policy {
	return Policy{
		Name:                "default",
		SilentAuthThreshold: DefaultSilentAuthThreshold,
		BlockThreshold:      DefaultBlockThreshold,
		DeviceWeight:        DefaultDeviceWeight,
		TLSWeight:           DefaultTLSWeight,
		BehavioralWeight:    DefaultBehavioralWeight,
		StepUpMethod:        StepUpOTP,
		AlertThreshold:      DefaultAlertThreshold,
	}
}

// WeightSumTolerance is how far the three weights may drift from 1.0
// before Validate reports a warning.
const WeightSumTolerance = 0.001

// Validate checks a policy for structural problems. Hard errors make the
// policy unusable; warnings flag configurations that are saved anyway,
// like weights that do not sum to 1.
func (p *Policy) Validate() (warnings []string, err error) {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"silentAuthThreshold", p.SilentAuthThreshold},
		{"blockThreshold", p.BlockThreshold},
		{"deviceWeight", p.DeviceWeight},
		{"tlsWeight", p.TLSWeight},
		{"behavioralWeight", p.BehavioralWeight},
		{"alertThreshold", p.AlertThreshold},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 || f.value > 1 {
			return nil, fmt.Errorf("%s must be a finite value between 0 and 1", f.name)
		}
	}

	if p.BlockThreshold > p.SilentAuthThreshold {
		return nil, fmt.Errorf("blockThreshold must not exceed silentAuthThreshold")
	}

	switch p.StepUpMethod {
	case StepUpOTP, StepUpEmail, StepUpSecurity, "":
	default:
		return nil, fmt.Errorf("unknown step-up method: %s", p.StepUpMethod)
	}

	sum := p.DeviceWeight + p.TLSWeight + p.BehavioralWeight
	if math.Abs(sum-1.0) > WeightSumTolerance {
		warnings = append(warnings, fmt.Sprintf("weights sum to %.3f, not 1.0", sum))
	}

	return warnings, nil
}

// Store persists decision policies.
type Store interface {
	Get(ctx context.Context, name string) (*Policy, error)
	Save(ctx context.Context, p *Policy) error
	List(ctx context.Context) ([]*Policy, error)
}
