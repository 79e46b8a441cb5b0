package behavior

import (
	"context"
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func sampleWithDwell(userID string, dwell float64) *Sample {
	return &Sample{UserID: userID, DwellTime: ptr(dwell)}
}

func TestBaselineRequiresThreeSamples(t *testing.T) {
	for n := 0; n < 3; n++ {
		samples := make([]*Sample, n)
		for i := range samples {
			samples[i] = sampleWithDwell("usr1", 90)
		}
		if got := BuildBaseline(samples); got != nil {
			t.Errorf("expected no baseline with %d samples, got %+v", n, got)
		}
	}

	samples := []*Sample{
		sampleWithDwell("usr1", 80),
		sampleWithDwell("usr1", 90),
		sampleWithDwell("usr1", 100),
	}
	profile := BuildBaseline(samples)
	if profile == nil {
		t.Fatal("expected a baseline with 3 samples")
	}
	if profile.SampleCount != 3 {
		t.Errorf("sample count = %d, want 3", profile.SampleCount)
	}
}

func TestBaselineMeanAndStdDev(t *testing.T) {
	samples := []*Sample{
		sampleWithDwell("usr1", 80),
		sampleWithDwell("usr1", 90),
		sampleWithDwell("usr1", 100),
	}
	profile := BuildBaseline(samples)
	if profile == nil {
		t.Fatal("expected a baseline")
	}

	stats, ok := profile.Features["dwellTime"]
	if !ok {
		t.Fatal("dwellTime missing from baseline")
	}
	if stats.Mean != 90 {
		t.Errorf("mean = %f, want 90", stats.Mean)
	}
	// Sample stddev of {80, 90, 100} is 10
	if math.Abs(stats.StdDev-10) > 1e-9 {
		t.Errorf("stdDev = %f, want 10", stats.StdDev)
	}
}

func TestBaselineSkipsMissingFeatures(t *testing.T) {
	samples := []*Sample{
		sampleWithDwell("usr1", 80),
		sampleWithDwell("usr1", 90),
		sampleWithDwell("usr1", 100),
	}
	profile := BuildBaseline(samples)
	if profile == nil {
		t.Fatal("expected a baseline")
	}
	if _, ok := profile.Features["typingSpeed"]; ok {
		t.Error("typingSpeed should be absent when no sample carries it")
	}
}

func TestBaselineSingleValueFeatureZeroStdDev(t *testing.T) {
	// Only one sample carries typingSpeed; overall count still qualifies.
	samples := []*Sample{
		{UserID: "usr1", DwellTime: ptr(80), TypingSpeed: ptr(55)},
		sampleWithDwell("usr1", 90),
		sampleWithDwell("usr1", 100),
	}
	profile := BuildBaseline(samples)
	if profile == nil {
		t.Fatal("expected a baseline")
	}
	stats, ok := profile.Features["typingSpeed"]
	if !ok {
		t.Fatal("typingSpeed missing from baseline")
	}
	if stats.Mean != 55 {
		t.Errorf("mean = %f, want 55", stats.Mean)
	}
	if stats.StdDev != 0 {
		t.Errorf("stdDev = %f, want 0 for a single value", stats.StdDev)
	}
}

func TestBaselineIdempotent(t *testing.T) {
	samples := []*Sample{
		{UserID: "usr1", DwellTime: ptr(80), MouseVelocity: ptr(200)},
		{UserID: "usr1", DwellTime: ptr(95), MouseVelocity: ptr(210)},
		{UserID: "usr1", DwellTime: ptr(105), MouseVelocity: ptr(190)},
	}
	a := BuildBaseline(samples)
	b := BuildBaseline(samples)
	if a == nil || b == nil {
		t.Fatal("expected baselines")
	}
	for name, statsA := range a.Features {
		statsB := b.Features[name]
		if statsA.Mean != statsB.Mean || statsA.StdDev != statsB.StdDev {
			t.Errorf("%s differs between runs: %+v vs %+v", name, statsA, statsB)
		}
	}
}

func TestProviderCachesByUserAndCount(t *testing.T) {
	store := NewMemoryStore()
	cache := NewMemoryCache()
	provider := NewProvider(store, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, sampleWithDwell("usr1", 90+float64(i))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	first, err := provider.Baseline(ctx, "usr1")
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if first == nil {
		t.Fatal("expected a baseline")
	}

	if _, ok := cache.Get(ctx, "usr1", 3); !ok {
		t.Error("expected cache entry for (usr1, 3)")
	}

	// A new sample changes the count, so the provider must recompute.
	if err := store.Save(ctx, sampleWithDwell("usr1", 120)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := cache.Get(ctx, "usr1", 4); ok {
		t.Error("cache should miss for the new sample count before recompute")
	}
	second, err := provider.Baseline(ctx, "usr1")
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if second.SampleCount != 4 {
		t.Errorf("sample count = %d, want 4", second.SampleCount)
	}
	if _, ok := cache.Get(ctx, "usr1", 4); !ok {
		t.Error("expected cache entry for (usr1, 4) after recompute")
	}
}

func TestProviderInsufficientHistory(t *testing.T) {
	provider := NewProvider(NewMemoryStore(), nil)
	profile, err := provider.Baseline(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if profile != nil {
		t.Errorf("expected nil baseline for unknown user, got %+v", profile)
	}
}
