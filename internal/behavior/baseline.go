package behavior

import (
	"math"
	"time"
)

// BuildBaseline derives a statistical profile from a user's sample history.
// Returns nil when fewer than MinSamplesForBaseline samples are present:
// callers must treat that as "unknown user", not "anomalous user".
//
// For each tracked feature the non-nil values across all samples are
// collected and summarized as mean plus sample standard deviation (n-1).
// A feature with fewer than 2 values gets stdDev 0 even when the overall
// sample count qualifies.
//
// Pure function over its input; calling it twice on the same history
// yields the same profile.
func BuildBaseline(samples []*Sample) *BaselineProfile {
	if len(samples) < MinSamplesForBaseline {
		return nil
	}

	features := make(map[string]FeatureStats, len(TrackedFeatures))
	for _, name := range TrackedFeatures {
		var values []float64
		for _, s := range samples {
			if v := s.Feature(name); v != nil {
				values = append(values, *v)
			}
		}
		if len(values) == 0 {
			continue
		}
		features[name] = FeatureStats{
			Mean:   mean(values),
			StdDev: sampleStdDev(values),
		}
	}

	profile := &BaselineProfile{
		SampleCount: len(samples),
		Features:    features,
		ComputedAt:  time.Now(),
	}
	if len(samples) > 0 {
		profile.UserID = samples[0].UserID
	}
	return profile
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev computes the sample standard deviation (n-1 divisor).
// Defined as 0 for fewer than 2 values.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
