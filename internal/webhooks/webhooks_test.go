package webhooks

import (
	"context"
	"crypto/hmac"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscription(url string, events ...EventType) *Subscription {
	return &Subscription{
		ID:        "wh_test",
		URL:       url,
		Secret:    "topsecret",
		Events:    events,
		Active:    true,
		CreatedAt: time.Now(),
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sub := newSubscription("https://example.com/hook", EventAlertCreated)
	require.NoError(t, store.Create(ctx, sub))

	got, err := store.Get(ctx, "wh_test")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", got.URL)
	assert.True(t, got.Wants(EventAlertCreated))
	assert.False(t, got.Wants(EventUserBlocked))

	require.NoError(t, store.Delete(ctx, "wh_test"))
	_, err = store.Get(ctx, "wh_test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByEventFiltersTypeAndActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	alerts := newSubscription("https://example.com/alerts", EventAlertCreated)
	alerts.ID = "wh_alerts"
	require.NoError(t, store.Create(ctx, alerts))

	blocks := newSubscription("https://example.com/blocks", EventUserBlocked)
	blocks.ID = "wh_blocks"
	require.NoError(t, store.Create(ctx, blocks))

	disabled := newSubscription("https://example.com/off", EventAlertCreated)
	disabled.ID = "wh_off"
	disabled.Active = false
	require.NoError(t, store.Create(ctx, disabled))

	subs, err := store.GetByEvent(ctx, EventAlertCreated)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "wh_alerts", subs[0].ID)
}

func TestDeliverSignsPayload(t *testing.T) {
	var gotSig, gotEvent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-SilentAuth-Signature")
		gotEvent = r.Header.Get("X-SilentAuth-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	sub := newSubscription(srv.URL, EventAlertCreated)
	require.NoError(t, store.Create(context.Background(), sub))

	d := NewDispatcher(store)
	event := &Event{
		ID:        "evt_1",
		Type:      EventAlertCreated,
		Timestamp: time.Now(),
		Data:      map[string]any{"userId": "usr_1"},
	}
	d.Deliver(context.Background(), sub, event)

	assert.Equal(t, "alert.created", gotEvent)
	require.NotEmpty(t, gotSig)
	assert.True(t, hmac.Equal([]byte(Sign(gotBody, sub.Secret)), []byte(gotSig)))

	updated, err := store.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.LastSuccess)
	assert.Empty(t, updated.LastError)
}

func TestDeliverDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	sub := newSubscription(srv.URL, EventAlertCreated)
	require.NoError(t, store.Create(context.Background(), sub))

	d := NewDispatcher(store)
	d.Deliver(context.Background(), sub, &Event{ID: "evt_1", Type: EventAlertCreated, Timestamp: time.Now()})

	assert.Equal(t, int32(1), calls.Load())

	updated, err := store.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ConsecutiveFailures)
	assert.NotEmpty(t, updated.LastError)
}

func TestDeliverRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	sub := newSubscription(srv.URL, EventAlertCreated)
	require.NoError(t, store.Create(context.Background(), sub))

	d := NewDispatcher(store)
	d.Deliver(context.Background(), sub, &Event{ID: "evt_1", Type: EventAlertCreated, Timestamp: time.Now()})

	assert.Equal(t, int32(3), calls.Load())

	updated, err := store.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Zero(t, updated.ConsecutiveFailures)
	assert.NotNil(t, updated.LastSuccess)
}

func TestBreakerStopsDeliveriesAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	sub := newSubscription(srv.URL, EventAlertCreated)
	require.NoError(t, store.Create(context.Background(), sub))

	d := NewDispatcher(store)
	event := &Event{ID: "evt_1", Type: EventAlertCreated, Timestamp: time.Now()}
	for i := 0; i < 10; i++ {
		d.Deliver(context.Background(), sub, event)
	}

	// The breaker opens after 5 failures, so later deliveries never
	// reach the endpoint.
	assert.Equal(t, int32(5), calls.Load())
}

func TestSubscriptionDisabledAfterTooManyFailures(t *testing.T) {
	store := NewMemoryStore()
	sub := newSubscription("https://example.com/hook", EventAlertCreated)
	require.NoError(t, store.Create(context.Background(), sub))

	d := NewDispatcher(store)
	for i := 0; i < maxConsecutiveFailures; i++ {
		d.recordFailure(context.Background(), sub, context.DeadlineExceeded)
	}

	updated, err := store.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.False(t, updated.Active)
}
