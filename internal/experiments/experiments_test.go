package experiments

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunning(t *testing.T, store *MemoryStore, split float64) *Experiment {
	t.Helper()
	exp := &Experiment{
		Name:          "stricter thresholds",
		ControlPolicy: "default",
		VariantPolicy: "strict",
		TrafficSplit:  split,
	}
	require.NoError(t, store.Create(context.Background(), exp))
	_, err := store.SetStatus(context.Background(), exp.ID, StatusRunning)
	require.NoError(t, err)
	return exp
}

func TestAssignmentIsDeterministic(t *testing.T) {
	exp := &Experiment{ID: "exp_1", TrafficSplit: 0.5}

	first := exp.AssignGroup("usr_abc")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, exp.AssignGroup("usr_abc"))
	}
}

func TestAssignmentRespectsSplitExtremes(t *testing.T) {
	users := []string{"usr_1", "usr_2", "usr_3", "usr_4", "usr_5"}

	allControl := &Experiment{ID: "exp_1", TrafficSplit: 0}
	for _, u := range users {
		assert.Equal(t, GroupControl, allControl.AssignGroup(u))
	}

	allVariant := &Experiment{ID: "exp_1", TrafficSplit: 1}
	for _, u := range users {
		assert.Equal(t, GroupVariant, allVariant.AssignGroup(u))
	}
}

func TestAssignmentSplitsTraffic(t *testing.T) {
	exp := &Experiment{ID: "exp_1", TrafficSplit: 0.5}

	variant := 0
	for i := 0; i < 1000; i++ {
		if exp.AssignGroup("usr_"+strconv.Itoa(i)) == GroupVariant {
			variant++
		}
	}
	// A 50/50 split over 1000 users should land well inside 35-65%.
	assert.Greater(t, variant, 350)
	assert.Less(t, variant, 650)
}

func TestValidateRejectsBadSplit(t *testing.T) {
	exp := &Experiment{Name: "x", ControlPolicy: "a", VariantPolicy: "b", TrafficSplit: 1.5}
	assert.Error(t, exp.Validate())

	exp.TrafficSplit = 0.5
	assert.NoError(t, exp.Validate())
}

func TestRunningReturnsOnlyLiveExperiment(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	draft := &Experiment{Name: "draft", ControlPolicy: "a", VariantPolicy: "b", TrafficSplit: 0.5}
	require.NoError(t, store.Create(ctx, draft))

	got, err := store.Running(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	live := newRunning(t, store, 0.5)
	got, err = store.Running(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, live.ID, got.ID)
	assert.NotNil(t, got.StartedAt)
}

func TestRecordSampleCounters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	exp := newRunning(t, store, 0.5)

	require.NoError(t, store.RecordSample(ctx, exp.ID, GroupControl, true))
	require.NoError(t, store.RecordSample(ctx, exp.ID, GroupControl, false))
	require.NoError(t, store.RecordSample(ctx, exp.ID, GroupVariant, true))

	got, err := store.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalSamples)
	assert.Equal(t, 2, got.ControlSamples)
	assert.Equal(t, 1, got.ControlSuccesses)
	assert.Equal(t, 1, got.VariantSamples)
	assert.Equal(t, 1, got.VariantSuccesses)
	assert.Equal(t, 0.5, got.SuccessRate(GroupControl))
	assert.Equal(t, 1.0, got.SuccessRate(GroupVariant))
}

func TestServiceAssignsFromRunningExperiment(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)

	_, assigned := svc.PolicyFor("usr_abc")
	assert.False(t, assigned, "no running experiment should mean no assignment")

	// New service so the cached nil lookup does not mask the live experiment.
	exp := newRunning(t, store, 1)
	svc = NewService(store)

	name, assigned := svc.PolicyFor("usr_abc")
	require.True(t, assigned)
	assert.Equal(t, exp.VariantPolicy, name)
}

func TestServiceRecordsOutcomes(t *testing.T) {
	store := NewMemoryStore()
	exp := newRunning(t, store, 1)
	svc := NewService(store)
	ctx := context.Background()

	svc.RecordAuth(ctx, "usr_abc", "silent_auth", 0.9, "ses_1")
	svc.RecordAuth(ctx, "usr_def", "step_up", 0.6, "ses_2")

	got, err := store.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.VariantSamples)
	assert.Equal(t, 1, got.VariantSuccesses)
}
