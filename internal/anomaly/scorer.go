package anomaly

import (
	"math"

	"github.com/silentauth/silentauth/internal/behavior"
)

// Score compares a current sample against a baseline profile.
//
// With no baseline it returns a fixed neutral result: trust 0.85, low
// confidence, step_up. Otherwise each feature present in both sample and
// baseline contributes a weighted anomaly probability; the normalized
// total becomes 1 - trust.
func Score(baseline *behavior.BaselineProfile, sample *behavior.Sample) *Result {
	if baseline == nil {
		return &Result{
			OverallScore:   NoBaselineScore,
			AnomalyFactors: []Factor{},
			IsAnomaly:      false,
			Confidence:     ConfidenceLow,
			Recommendation: RecommendStepUp,
		}
	}

	var (
		factors       []Factor
		totalWeighted float64
		totalWeight   float64
		anomalyCount  int
	)

	for _, name := range behavior.TrackedFeatures {
		value := sample.Feature(name)
		if value == nil {
			continue
		}
		stats, ok := baseline.Features[name]
		if !ok {
			continue
		}

		z := zScore(*value, stats.Mean, stats.StdDev)
		prob := anomalyProbability(z)
		isAnomaly := z > 2
		if isAnomaly {
			anomalyCount++
		}

		factors = append(factors, Factor{
			Factor:        name,
			CurrentValue:  *value,
			ExpectedValue: stats.Mean,
			Deviation:     z,
			IsAnomaly:     isAnomaly,
		})

		weight := FeatureWeights[name]
		totalWeighted += prob * weight
		totalWeight += weight
	}

	normalized := 0.0
	if totalWeight > 0 {
		normalized = totalWeighted / totalWeight
	}
	trust := 1 - normalized

	result := &Result{
		OverallScore:   trust,
		AnomalyFactors: factors,
		IsAnomaly:      normalized > 0.5 || anomalyCount >= 3,
		Confidence:     confidenceFor(len(factors)),
		Recommendation: recommendationFor(trust),
	}
	if result.AnomalyFactors == nil {
		result.AnomalyFactors = []Factor{}
	}
	return result
}

// zScore is the absolute deviation in standard deviations. A zero stdDev
// marks a non-discriminating feature, scored as 0 rather than dividing.
func zScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return math.Abs(value-mean) / stdDev
}

// anomalyProbability maps a z-score to [0, 1] via a piecewise-linear
// curve. Deviations within 1 sigma score 0; extreme outliers saturate
// near 1 instead of blowing up linearly.
func anomalyProbability(z float64) float64 {
	switch {
	case z <= 1:
		return 0
	case z <= 2:
		return (z - 1) * 0.3
	case z <= 3:
		return 0.3 + (z-2)*0.4
	default:
		return math.Min(1, 0.7+(z-3)*0.15)
	}
}

// confidenceFor reflects evidence volume, not the score itself.
func confidenceFor(evaluated int) Confidence {
	switch {
	case evaluated >= 6:
		return ConfidenceHigh
	case evaluated >= 3:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func recommendationFor(trust float64) Recommendation {
	switch {
	case trust >= AllowThreshold:
		return RecommendAllow
	case trust >= StepUpThreshold:
		return RecommendStepUp
	default:
		return RecommendBlock
	}
}
