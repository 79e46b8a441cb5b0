package authevents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct{ n int }

func (f *fakeCounter) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	return f.n, nil
}

func TestStatsEmptyWindow(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeCounter{n: 0})
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalAuthentications)
	assert.Equal(t, DefaultAverageConfidence, stats.AverageConfidence)
	assert.Zero(t, stats.SuccessRate)
}

func TestStatsRates(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, &fakeCounter{n: 7})
	ctx := context.Background()

	svc.RecordAuth(ctx, "usr1", TypeSilentAuth, 0.9, "")
	svc.RecordAuth(ctx, "usr1", TypeSilentAuth, 0.8, "")
	svc.RecordAuth(ctx, "usr2", TypeStepUp, 0.6, "")
	svc.RecordAuth(ctx, "usr3", TypeFailed, 0.3, "")

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalAuthentications)
	// silent_auth counts toward success
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 0.5, stats.SilentAuthRate, 1e-9)
	assert.InDelta(t, 0.25, stats.StepUpRate, 1e-9)
	assert.InDelta(t, (0.9+0.8+0.6+0.3)/4, stats.AverageConfidence, 1e-9)
	assert.Equal(t, 7, stats.ActiveDevices)
}

func TestStatsWindowExcludesOldEvents(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	old := &Event{
		ID: "evt_old", UserID: "usr1", EventType: TypeSilentAuth,
		Confidence: 0.9, CreatedAt: time.Now().Add(-25 * time.Hour),
	}
	require.NoError(t, store.Save(ctx, old))
	svc.RecordAuth(ctx, "usr1", TypeStepUp, 0.6, "")

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAuthentications)
	assert.InDelta(t, 1.0, stats.StepUpRate, 1e-9)
}

func TestListByUserMostRecentFirst(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	svc.RecordAuth(ctx, "usr1", TypeSilentAuth, 0.9, "ses1")
	svc.RecordAuth(ctx, "usr1", TypeStepUp, 0.6, "ses2")
	svc.RecordAuth(ctx, "usr2", TypeFailed, 0.2, "")

	events, err := store.ListByUser(ctx, "usr1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeStepUp, events[0].EventType)
}
