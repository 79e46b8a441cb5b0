package anomaly

import (
	"strings"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// CriticalTrustThreshold marks the trust level below which an alert is
// classified critical instead of high.
const CriticalTrustThreshold = 0.3

// BuildAlert converts an anomalous scoring result into an alert record.
// Returns nil when the result did not trip the anomaly flag.
func BuildAlert(userID string, result *Result) *Alert {
	if result == nil || !result.IsAnomaly {
		return nil
	}

	severity := SeverityHigh
	if result.OverallScore < CriticalTrustThreshold {
		severity = SeverityCritical
	}

	var names []string
	for _, f := range result.AnomalyFactors {
		if f.IsAnomaly {
			names = append(names, f.Factor)
		}
	}
	description := "Behavioral anomaly detected"
	if len(names) > 0 {
		description += ": unusual " + strings.Join(names, ", ")
	}

	return &Alert{
		ID:          idgen.WithPrefix("alr_"),
		UserID:      userID,
		AlertType:   "behavioral",
		Severity:    severity,
		Description: description,
		RiskScore:   1 - result.OverallScore,
		CreatedAt:   time.Now(),
	}
}
