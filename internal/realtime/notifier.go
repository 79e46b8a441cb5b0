package realtime

import (
	"fmt"
	"time"

	"github.com/silentauth/silentauth/internal/anomaly"
	"github.com/silentauth/silentauth/internal/idgen"
)

// Notifier adapts the hub to the assessment pipeline's push interface.
// Each assessment outcome becomes a confidence update, and anomalies
// additionally land in the live activity feed.
type Notifier struct {
	hub *Hub
}

// NewNotifier wraps a hub for use by the risk handlers.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// ConfidenceUpdate pushes a user's latest confidence score.
func (n *Notifier) ConfidenceUpdate(userID string, score float64) {
	n.hub.Broadcast(&Event{
		Type:      EventConfidenceUpdate,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"type":   "confidence_update",
			"userId": userID,
			"score":  score,
		},
	})
}

// AnomalyAlert pushes an alert event and a matching activity feed item.
func (n *Notifier) AnomalyAlert(alert *anomaly.Alert) {
	now := time.Now()
	n.hub.Broadcast(&Event{
		Type:      EventAlert,
		Timestamp: now,
		Data:      alert,
	})
	n.hub.BroadcastActivity(&LiveActivityItem{
		ID:              idgen.WithPrefix("act_"),
		Type:            alert.AlertType,
		UserID:          alert.UserID,
		RiskScore:       alert.RiskScore,
		ConfidenceLevel: string(alert.Severity),
		Message:         fmt.Sprintf("%s alert for %s: %s", alert.Severity, alert.UserID, alert.Description),
		Timestamp:       now,
	})
}
