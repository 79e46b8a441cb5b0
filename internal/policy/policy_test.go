package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyValidates(t *testing.T) {
	p := Default()
	warnings, err := p.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestNonSummingWeightsWarnButPass(t *testing.T) {
	p := Default()
	p.DeviceWeight = 0.5
	p.TLSWeight = 0.5
	p.BehavioralWeight = 0.5

	warnings, err := p.Validate()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "weights sum to")
}

func TestOutOfRangeWeightRejected(t *testing.T) {
	p := Default()
	p.DeviceWeight = 1.5
	_, err := p.Validate()
	assert.Error(t, err)

	p = Default()
	p.BehavioralWeight = -0.1
	_, err = p.Validate()
	assert.Error(t, err)
}

func TestInvertedThresholdsRejected(t *testing.T) {
	p := Default()
	p.BlockThreshold = 0.9
	p.SilentAuthThreshold = 0.5
	_, err := p.Validate()
	assert.Error(t, err)
}

func TestUnknownStepUpMethodRejected(t *testing.T) {
	p := Default()
	p.StepUpMethod = "carrier_pigeon"
	_, err := p.Validate()
	assert.Error(t, err)
}

func TestMemoryStoreSeedsDefault(t *testing.T) {
	store := NewMemoryStore()
	p, err := store.Get(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, DefaultSilentAuthThreshold, p.SilentAuthThreshold)
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	variant := Default()
	variant.Name = "variant-b"
	variant.BehavioralWeight = 0.5
	variant.DeviceWeight = 0.3
	variant.TLSWeight = 0.2
	require.NoError(t, store.Save(ctx, &variant))

	got, err := store.Get(ctx, "variant-b")
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.BehavioralWeight)
	assert.False(t, got.UpdatedAt.IsZero())

	policies, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 2)
}
