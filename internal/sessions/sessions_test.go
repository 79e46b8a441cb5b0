package sessions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDefaultsToActive(t *testing.T) {
	store := NewMemoryStore()
	ses := &Session{UserID: "usr1", Confidence: 0.9}
	require.NoError(t, store.Create(context.Background(), ses))

	assert.NotEmpty(t, ses.ID)
	assert.Equal(t, StatusActive, ses.Status)
	assert.False(t, ses.LastActivity.IsZero())
}

func TestTouchUpdatesConfidence(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ses := &Session{UserID: "usr1", Confidence: 0.9}
	require.NoError(t, store.Create(ctx, ses))

	require.NoError(t, store.Touch(ctx, ses.ID, 0.4))
	got, err := store.Get(ctx, ses.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.4, got.Confidence)
}

func TestFlagAndListByStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &Session{UserID: "usr1"}
	b := &Session{UserID: "usr2"}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	require.NoError(t, store.SetStatus(ctx, b.ID, StatusFlagged))

	flagged, err := store.ListByStatus(ctx, StatusFlagged, 10)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, b.ID, flagged[0].ID)

	active, err := store.ListByStatus(ctx, StatusActive, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
}

func TestUnknownSessionErrors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "ses_nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Touch(ctx, "ses_nope", 0.5), ErrNotFound)
	assert.ErrorIs(t, store.SetStatus(ctx, "ses_nope", StatusTerminated), ErrNotFound)
}
