// Package tlsprint tracks JA3/JA4 TLS client fingerprints and their
// accumulated trust, feeding the TLS signal of the composite risk engine.
package tlsprint

import (
	"context"
	"time"
)

// TrustIncrement is added on each observation of a known fingerprint,
// capped at 1.0.
const TrustIncrement = 0.03

// InitialTrustScore is assigned to a newly observed fingerprint.
const InitialTrustScore = 0.5

// Fingerprint is one observed TLS client signature.
type Fingerprint struct {
	ID         string    `json:"id"`
	JA3Hash    string    `json:"ja3Hash,omitempty"`
	JA4Hash    string    `json:"ja4Hash,omitempty"`
	SeenCount  int       `json:"seenCount"`
	TrustScore float64   `json:"trustScore"`
	FirstSeen  time.Time `json:"firstSeen"`
	LastSeen   time.Time `json:"lastSeen"`
}

// Store persists TLS fingerprints.
type Store interface {
	// Observe upserts a fingerprint sighting keyed by JA3 hash (JA4 is
	// carried alongside when present). Returns the post-observation state.
	Observe(ctx context.Context, ja3, ja4 string) (*Fingerprint, error)
	// GetByHash resolves a fingerprint by JA3 or JA4 hash.
	GetByHash(ctx context.Context, hash string) (*Fingerprint, error)
	ListRecent(ctx context.Context, limit int) ([]*Fingerprint, error)
}
