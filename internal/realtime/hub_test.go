package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventActivity, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventActivity, EventAlert},
	}}

	activityEvent := &Event{Type: EventActivity}
	alertEvent := &Event{Type: EventAlert}
	confidenceEvent := &Event{Type: EventConfidenceUpdate}

	if !h.shouldSend(client, activityEvent) {
		t.Error("Should receive activity events")
	}
	if !h.shouldSend(client, alertEvent) {
		t.Error("Should receive alert events")
	}
	if h.shouldSend(client, confidenceEvent) {
		t.Error("Should NOT receive confidence_update events")
	}
}

func TestShouldSend_UserFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		UserIDs: []string{"usr_1"},
	}}

	matchingItem := &Event{
		Type: EventActivity,
		Data: &LiveActivityItem{UserID: "usr_1", RiskScore: 0.4},
	}
	otherItem := &Event{
		Type: EventActivity,
		Data: &LiveActivityItem{UserID: "usr_2", RiskScore: 0.4},
	}
	matchingMap := &Event{
		Type: EventConfidenceUpdate,
		Data: map[string]interface{}{"userId": "usr_1", "score": 0.9},
	}

	if !h.shouldSend(client, matchingItem) {
		t.Error("Should match activity for watched user")
	}
	if h.shouldSend(client, otherItem) {
		t.Error("Should NOT match other users")
	}
	if !h.shouldSend(client, matchingMap) {
		t.Error("Should match userId in map payloads")
	}
}

func TestShouldSend_MinRiskScore(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes:   []EventType{EventActivity},
		MinRiskScore: 0.5,
	}}

	low := &Event{Type: EventActivity, Data: &LiveActivityItem{UserID: "usr_1", RiskScore: 0.2}}
	high := &Event{Type: EventActivity, Data: &LiveActivityItem{UserID: "usr_1", RiskScore: 0.8}}

	if h.shouldSend(client, low) {
		t.Error("Should NOT receive activity below the risk floor")
	}
	if !h.shouldSend(client, high) {
		t.Error("Should receive activity above the risk floor")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHubRegisterAndBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := &Client{hub: h, send: make(chan []byte, 4), sub: Subscription{AllEvents: true}}
	h.register <- client

	h.BroadcastActivity(&LiveActivityItem{
		ID:        "act_1",
		Type:      "behavioral",
		UserID:    "usr_1",
		RiskScore: 0.7,
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("broadcast message should not be empty")
		}
	case <-time.After(time.Second):
		t.Fatal("client never received broadcast")
	}

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("connectedClients = %v, want 1", stats["connectedClients"])
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	client := &Client{hub: h, send: make(chan []byte, 4), sub: Subscription{AllEvents: true}}
	h.register <- client

	cancel()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("send channel should be closed on shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := testHub()
	// Run loop not started, so the channel fills up.
	for i := 0; i < 300; i++ {
		h.Broadcast(&Event{Type: EventActivity, Timestamp: time.Now()})
	}
	// Reaching here without blocking is the assertion.
}
