package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse battery staple"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestCreateAndGetUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	u := &User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, store.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	byID, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &User{Username: "alice", PasswordHash: "x"}))
	err := store.Create(ctx, &User{Username: "alice", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUnknownUserNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
