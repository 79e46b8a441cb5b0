package ipreputation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownIPIsNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "203.0.113.7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScoreTracksSuccessRate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	r, err := store.RecordAttempt(ctx, "203.0.113.7", OutcomeSuccess)
	require.NoError(t, err)
	assert.Equal(t, 1, r.TotalAttempts)
	assert.Equal(t, 1.0, r.ReputationScore)

	r, err = store.RecordAttempt(ctx, "203.0.113.7", OutcomeFailure)
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalAttempts)
	assert.Equal(t, 1, r.FailedAttempts)
	assert.Equal(t, 0.5, r.ReputationScore)

	r, err = store.RecordAttempt(ctx, "203.0.113.7", OutcomeBlocked)
	require.NoError(t, err)
	assert.Equal(t, 3, r.TotalAttempts)
	assert.Equal(t, 1, r.BlockedAttempts)
	assert.InDelta(t, 1.0/3.0, r.ReputationScore, 1e-9)
}

func TestFreshReputationIsNeutral(t *testing.T) {
	r := &Reputation{IPAddress: "203.0.113.7"}
	assert.Equal(t, NeutralScore, r.Score())
}

func TestBlacklistLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	r, err := store.SetBlacklist(ctx, "198.51.100.4", true, "credential stuffing")
	require.NoError(t, err)
	assert.True(t, r.Blacklisted)
	assert.Equal(t, "credential stuffing", r.BlacklistReason)

	list, err := store.ListBlacklisted(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "198.51.100.4", list[0].IPAddress)

	r, err = store.SetBlacklist(ctx, "198.51.100.4", false, "")
	require.NoError(t, err)
	assert.False(t, r.Blacklisted)
	assert.Empty(t, r.BlacklistReason)

	list, err = store.ListBlacklisted(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBlacklistDoesNotResetCounters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.RecordAttempt(ctx, "198.51.100.4", OutcomeFailure)
	require.NoError(t, err)

	r, err := store.SetBlacklist(ctx, "198.51.100.4", true, "abuse")
	require.NoError(t, err)
	assert.Equal(t, 1, r.TotalAttempts)
	assert.Equal(t, 1, r.FailedAttempts)
}
