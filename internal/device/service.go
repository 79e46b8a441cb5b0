package device

import (
	"context"

	"github.com/silentauth/silentauth/internal/risk"
)

// Service adapts the device store to the risk engine's lookup contract.
type Service struct {
	store Store
}

// NewService creates a device service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// DeviceHistory resolves the user's history with a device fingerprint.
// Returns nil when the device has never been seen for this user.
func (s *Service) DeviceHistory(ctx context.Context, userID, deviceID string) (*risk.DeviceHistory, error) {
	d, err := s.store.GetByUserAndFingerprint(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return &risk.DeviceHistory{
		SeenCount:  d.SeenCount,
		TrustScore: d.TrustScore,
	}, nil
}
