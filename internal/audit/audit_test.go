package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsIDAndDefaults(t *testing.T) {
	store := NewMemoryStore()

	e := &Entry{EventType: EventPolicyChange, Action: "update"}
	require.NoError(t, store.Append(context.Background(), e))

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, ActorUser, e.ActorType)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &Entry{EventType: EventAuthAttempt, Action: "authenticate", ActorID: "usr_1"}))
	require.NoError(t, store.Append(ctx, &Entry{EventType: EventPolicyChange, Action: "update", ActorID: "adm_1"}))

	entries, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EventPolicyChange, entries[0].EventType)
}

func TestFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &Entry{EventType: EventAuthAttempt, Action: "authenticate", ActorID: "usr_1", TargetID: "ses_1"}))
	require.NoError(t, store.Append(ctx, &Entry{EventType: EventAuthAttempt, Action: "authenticate", ActorID: "usr_2", TargetID: "ses_2"}))
	require.NoError(t, store.Append(ctx, &Entry{EventType: EventSessionRevoked, Action: "update", ActorID: "adm_1", TargetID: "ses_1"}))

	byEvent, err := store.List(ctx, Filter{EventType: EventAuthAttempt})
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byActor, err := store.List(ctx, Filter{ActorID: "usr_1"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "ses_1", byActor[0].TargetID)

	byTarget, err := store.List(ctx, Filter{TargetID: "ses_1"})
	require.NoError(t, err)
	assert.Len(t, byTarget, 2)

	combined, err := store.List(ctx, Filter{EventType: EventAuthAttempt, TargetID: "ses_1"})
	require.NoError(t, err)
	assert.Len(t, combined, 1)
}

func TestLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(ctx, &Entry{EventType: EventAuthAttempt, Action: "authenticate"}))
	}

	entries, err := store.List(ctx, Filter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestTargetTypeFromPath(t *testing.T) {
	assert.Equal(t, "policies", targetTypeFrom("/v1/admin/policies/:name"))
	assert.Equal(t, "experiments", targetTypeFrom("/v1/admin/experiments/:id/status"))
	assert.Equal(t, "ip-reputation", targetTypeFrom("/v1/admin/ip-reputation/:ip/blacklist"))
}
