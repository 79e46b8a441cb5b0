package tlsprint

import "context"

// Service adapts the fingerprint store to the risk engine's lookup
// contract.
type Service struct {
	store Store
}

// NewService creates a fingerprint service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// TrustByHash resolves a fingerprint's trust score by JA3 or JA4 hash.
// Returns nil when the hash has no stored match.
func (s *Service) TrustByHash(ctx context.Context, hash string) (*float64, error) {
	fp, err := s.store.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if fp == nil {
		return nil, nil
	}
	trust := fp.TrustScore
	return &trust, nil
}
