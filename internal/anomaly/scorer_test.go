package anomaly

import (
	"math"
	"testing"

	"github.com/silentauth/silentauth/internal/behavior"
)

func ptr(v float64) *float64 { return &v }

func baselineWith(features map[string]behavior.FeatureStats) *behavior.BaselineProfile {
	return &behavior.BaselineProfile{
		UserID:      "usr1",
		SampleCount: 5,
		Features:    features,
	}
}

func TestNoBaselineNeutralResult(t *testing.T) {
	result := Score(nil, &behavior.Sample{DwellTime: ptr(90)})

	if result.OverallScore != NoBaselineScore {
		t.Errorf("score = %f, want %f", result.OverallScore, NoBaselineScore)
	}
	if result.IsAnomaly {
		t.Error("no-baseline result must not flag an anomaly")
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low", result.Confidence)
	}
	if result.Recommendation != RecommendStepUp {
		t.Errorf("recommendation = %s, want step_up", result.Recommendation)
	}
	if len(result.AnomalyFactors) != 0 {
		t.Errorf("expected empty factor list, got %d", len(result.AnomalyFactors))
	}
}

func TestAnomalyProbabilityCurve(t *testing.T) {
	cases := []struct {
		z    float64
		want float64
	}{
		{0, 0},
		{0.5, 0},
		{1, 0},
		{1.5, 0.15},
		{2, 0.3},
		{2.5, 0.5},
		{3, 0.7},
		{4, 0.85},
		{5, 1.0},
		{10, 1.0},
	}
	for _, tc := range cases {
		got := anomalyProbability(tc.z)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("anomalyProbability(%f) = %f, want %f", tc.z, got, tc.want)
		}
	}
}

func TestAnomalyProbabilityMonotonic(t *testing.T) {
	prev := -1.0
	for z := 0.0; z <= 12; z += 0.1 {
		got := anomalyProbability(z)
		if got < prev {
			t.Fatalf("probability decreased at z=%f: %f < %f", z, got, prev)
		}
		prev = got
	}
}

func TestZeroStdDevNonDiscriminating(t *testing.T) {
	baseline := baselineWith(map[string]behavior.FeatureStats{
		"dwellTime": {Mean: 90, StdDev: 0},
	})
	result := Score(baseline, &behavior.Sample{DwellTime: ptr(500)})

	if len(result.AnomalyFactors) != 1 {
		t.Fatalf("expected 1 factor, got %d", len(result.AnomalyFactors))
	}
	if result.AnomalyFactors[0].Deviation != 0 {
		t.Errorf("deviation = %f, want 0 for zero-variance feature", result.AnomalyFactors[0].Deviation)
	}
	if result.OverallScore != 1 {
		t.Errorf("trust = %f, want 1", result.OverallScore)
	}
}

func TestMissingFeaturesSkipped(t *testing.T) {
	baseline := baselineWith(map[string]behavior.FeatureStats{
		"dwellTime":   {Mean: 90, StdDev: 10},
		"typingSpeed": {Mean: 55, StdDev: 5},
	})
	// Sample carries only dwellTime; typingSpeed must not contribute.
	result := Score(baseline, &behavior.Sample{DwellTime: ptr(90)})

	if len(result.AnomalyFactors) != 1 {
		t.Fatalf("expected 1 factor, got %d", len(result.AnomalyFactors))
	}
	if result.AnomalyFactors[0].Factor != "dwellTime" {
		t.Errorf("factor = %s, want dwellTime", result.AnomalyFactors[0].Factor)
	}
}

func TestSingleFeatureBlockScenario(t *testing.T) {
	// dwellTime mean 90 std 10, current 130: z=4, probability 0.85,
	// normalized over the single used weight gives trust 0.15.
	baseline := baselineWith(map[string]behavior.FeatureStats{
		"dwellTime": {Mean: 90, StdDev: 10},
	})
	result := Score(baseline, &behavior.Sample{DwellTime: ptr(130)})

	if len(result.AnomalyFactors) != 1 {
		t.Fatalf("expected 1 factor, got %d", len(result.AnomalyFactors))
	}
	f := result.AnomalyFactors[0]
	if f.Deviation != 4 {
		t.Errorf("z = %f, want 4", f.Deviation)
	}
	if !f.IsAnomaly {
		t.Error("z=4 must flag the factor anomalous")
	}
	if math.Abs(result.OverallScore-0.15) > 1e-9 {
		t.Errorf("trust = %f, want 0.15", result.OverallScore)
	}
	if !result.IsAnomaly {
		t.Error("normalized anomaly 0.85 must flip the aggregate flag")
	}
	if result.Recommendation != RecommendBlock {
		t.Errorf("recommendation = %s, want block", result.Recommendation)
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low for a single feature", result.Confidence)
	}
}

func TestThreeAnomalousFactorsFlipFlag(t *testing.T) {
	// Three features each at z=2.5 (probability 0.5). The weighted
	// aggregate sits at exactly 0.5, not above it, so only the factor
	// count trips the flag.
	baseline := baselineWith(map[string]behavior.FeatureStats{
		"mouseVelocity": {Mean: 100, StdDev: 10},
		"dwellTime":     {Mean: 90, StdDev: 10},
		"typingSpeed":   {Mean: 50, StdDev: 10},
	})
	result := Score(baseline, &behavior.Sample{
		MouseVelocity: ptr(125),
		DwellTime:     ptr(115),
		TypingSpeed:   ptr(75),
	})

	anomalous := 0
	for _, f := range result.AnomalyFactors {
		if f.IsAnomaly {
			anomalous++
		}
	}
	if anomalous != 3 {
		t.Fatalf("anomalous factors = %d, want 3", anomalous)
	}
	if !result.IsAnomaly {
		t.Error("three anomalous factors must flip the aggregate flag")
	}
}

func TestConfidenceLevels(t *testing.T) {
	stats := behavior.FeatureStats{Mean: 100, StdDev: 10}
	baseline := baselineWith(map[string]behavior.FeatureStats{
		"mouseVelocity":     stats,
		"mouseAcceleration": stats,
		"dwellTime":         stats,
		"flightTime":        stats,
		"typingSpeed":       stats,
		"straightLineRatio": stats,
		"curveComplexity":   stats,
	})

	full := &behavior.Sample{
		MouseVelocity:     ptr(100),
		MouseAcceleration: ptr(100),
		DwellTime:         ptr(100),
		FlightTime:        ptr(100),
		TypingSpeed:       ptr(100),
		StraightLineRatio: ptr(100),
		CurveComplexity:   ptr(100),
	}
	if got := Score(baseline, full).Confidence; got != ConfidenceHigh {
		t.Errorf("7 features: confidence = %s, want high", got)
	}

	three := &behavior.Sample{
		MouseVelocity: ptr(100),
		DwellTime:     ptr(100),
		TypingSpeed:   ptr(100),
	}
	if got := Score(baseline, three).Confidence; got != ConfidenceMedium {
		t.Errorf("3 features: confidence = %s, want medium", got)
	}

	one := &behavior.Sample{DwellTime: ptr(100)}
	if got := Score(baseline, one).Confidence; got != ConfidenceLow {
		t.Errorf("1 feature: confidence = %s, want low", got)
	}
}

func TestNormalBehaviorAllows(t *testing.T) {
	baseline := baselineWith(map[string]behavior.FeatureStats{
		"mouseVelocity": {Mean: 200, StdDev: 20},
		"dwellTime":     {Mean: 90, StdDev: 10},
		"typingSpeed":   {Mean: 55, StdDev: 8},
	})
	result := Score(baseline, &behavior.Sample{
		MouseVelocity: ptr(205),
		DwellTime:     ptr(92),
		TypingSpeed:   ptr(57),
	})

	if result.OverallScore != 1 {
		t.Errorf("trust = %f, want 1 for behavior within 1 sigma", result.OverallScore)
	}
	if result.IsAnomaly {
		t.Error("normal behavior must not flag an anomaly")
	}
	if result.Recommendation != RecommendAllow {
		t.Errorf("recommendation = %s, want allow", result.Recommendation)
	}
}

func TestBuildAlertSeverity(t *testing.T) {
	critical := BuildAlert("usr1", &Result{
		OverallScore: 0.15,
		IsAnomaly:    true,
		AnomalyFactors: []Factor{
			{Factor: "dwellTime", IsAnomaly: true},
			{Factor: "typingSpeed", IsAnomaly: false},
		},
	})
	if critical == nil {
		t.Fatal("expected an alert for an anomalous result")
	}
	if critical.Severity != SeverityCritical {
		t.Errorf("severity = %s, want critical below 0.3 trust", critical.Severity)
	}
	if math.Abs(critical.RiskScore-0.85) > 1e-9 {
		t.Errorf("riskScore = %f, want 0.85", critical.RiskScore)
	}
	if critical.AlertType != "behavioral" {
		t.Errorf("alertType = %s, want behavioral", critical.AlertType)
	}
	if want := "Behavioral anomaly detected: unusual dwellTime"; critical.Description != want {
		t.Errorf("description = %q, want %q", critical.Description, want)
	}

	high := BuildAlert("usr1", &Result{OverallScore: 0.45, IsAnomaly: true, AnomalyFactors: []Factor{}})
	if high.Severity != SeverityHigh {
		t.Errorf("severity = %s, want high at 0.45 trust", high.Severity)
	}

	if got := BuildAlert("usr1", &Result{OverallScore: 0.9, IsAnomaly: false}); got != nil {
		t.Errorf("expected nil alert for non-anomalous result, got %+v", got)
	}
}
