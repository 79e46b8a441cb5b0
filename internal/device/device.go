// Package device tracks the devices each user authenticates from.
//
// A device is identified by its client-side fingerprint hash. Every
// observation bumps the seen count and nudges trust upward, feeding the
// familiarity half of the composite risk engine's device score.
package device

import (
	"context"
	"time"
)

// TrustIncrement is added to a device's trust score on each observation,
// capped at 1.0.
const TrustIncrement = 0.02

// InitialTrustScore is the trust assigned to a newly observed device.
const InitialTrustScore = 0.5

// Device is one user/device pairing.
type Device struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Fingerprint string    `json:"fingerprint"`
	UserAgent   string    `json:"userAgent,omitempty"`
	SeenCount   int       `json:"seenCount"`
	TrustScore  float64   `json:"trustScore"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
}

// Store persists devices.
type Store interface {
	// Observe upserts a device sighting: new devices start at
	// InitialTrustScore, existing ones gain TrustIncrement and a seen
	// count bump. Returns the post-observation state.
	Observe(ctx context.Context, userID, fingerprint, userAgent string) (*Device, error)
	GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*Device, error)
	ListByUser(ctx context.Context, userID string) ([]*Device, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}
