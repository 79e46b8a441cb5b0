package tlsprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveNewFingerprint(t *testing.T) {
	store := NewMemoryStore()
	fp, err := store.Observe(context.Background(), "ja3hash1", "ja4hash1")
	require.NoError(t, err)

	assert.Equal(t, 1, fp.SeenCount)
	assert.Equal(t, InitialTrustScore, fp.TrustScore)
}

func TestObserveBumpsTrust(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Observe(ctx, "ja3hash1", "")
	require.NoError(t, err)
	fp, err := store.Observe(ctx, "ja3hash1", "")
	require.NoError(t, err)

	assert.Equal(t, 2, fp.SeenCount)
	assert.InDelta(t, InitialTrustScore+TrustIncrement, fp.TrustScore, 1e-9)
}

func TestLookupByEitherHash(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Observe(ctx, "ja3hash1", "ja4hash1")
	require.NoError(t, err)

	byJA3, err := store.GetByHash(ctx, "ja3hash1")
	require.NoError(t, err)
	require.NotNil(t, byJA3)

	byJA4, err := store.GetByHash(ctx, "ja4hash1")
	require.NoError(t, err)
	require.NotNil(t, byJA4)
	assert.Equal(t, byJA3.ID, byJA4.ID)
}

func TestServiceTrustByHash(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.Observe(ctx, "ja3hash1", "")
	require.NoError(t, err)

	svc := NewService(store)
	trust, err := svc.TrustByHash(ctx, "ja3hash1")
	require.NoError(t, err)
	require.NotNil(t, trust)
	assert.Equal(t, InitialTrustScore, *trust)

	missing, err := svc.TrustByHash(ctx, "never_seen")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
