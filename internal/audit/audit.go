// Package audit keeps an append-only log of security-relevant actions:
// authentication decisions, policy changes, blacklisting, alert handling.
// Entries are never updated or deleted.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Event types recorded in the log.
const (
	EventAuthAttempt     = "auth_attempt"
	EventPolicyChange    = "policy_change"
	EventUserBlocked     = "user_blocked"
	EventAlertResolved   = "alert_resolved"
	EventSessionRevoked  = "session_revoked"
	EventBlacklistChange = "blacklist_change"
	EventAdminAction     = "admin_action"
)

// Actor types.
const (
	ActorUser   = "user"
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

// Entry is one immutable audit record.
type Entry struct {
	ID             string          `json:"id"`
	EventType      string          `json:"eventType"`
	ActorID        string          `json:"actorId,omitempty"`
	ActorType      string          `json:"actorType"`
	TargetID       string          `json:"targetId,omitempty"`
	TargetType     string          `json:"targetType,omitempty"`
	Action         string          `json:"action"`
	PreviousValue  json.RawMessage `json:"previousValue,omitempty"`
	NewValue       json.RawMessage `json:"newValue,omitempty"`
	IPAddress      string          `json:"ipAddress,omitempty"`
	UserAgent      string          `json:"userAgent,omitempty"`
	RiskScore      *float64        `json:"riskScore,omitempty"`
	Decision       string          `json:"decision,omitempty"`
	DecisionReason string          `json:"decisionReason,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Filter narrows a log listing. Zero values match everything.
type Filter struct {
	EventType string
	ActorID   string
	TargetID  string
	Limit     int
}

// Matches reports whether an entry passes the filter's predicates.
func (f Filter) Matches(e *Entry) bool {
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	return true
}

// Store persists audit entries.
type Store interface {
	// Append writes one entry. The store assigns ID and CreatedAt when unset.
	Append(ctx context.Context, e *Entry) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]*Entry, error)
}
