//go:build integration

package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/silentauth/silentauth/internal/testutil"
)

func TestPostgresSubscriptions_CRUD(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	sub := &Subscription{
		ID:        "wh_pg1",
		URL:       "https://example.com/hook",
		Secret:    "topsecret",
		Events:    []EventType{EventAlertCreated, EventUserBlocked},
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := store.Create(ctx, sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "wh_pg1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.URL != sub.URL || len(got.Events) != 2 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	byEvent, err := store.GetByEvent(ctx, EventAlertCreated)
	if err != nil {
		t.Fatalf("GetByEvent failed: %v", err)
	}
	if len(byEvent) != 1 {
		t.Fatalf("GetByEvent: got %d, want 1", len(byEvent))
	}

	got.Active = false
	got.LastError = "status 502"
	got.ConsecutiveFailures = 3
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	byEvent, err = store.GetByEvent(ctx, EventAlertCreated)
	if err != nil {
		t.Fatalf("GetByEvent failed: %v", err)
	}
	if len(byEvent) != 0 {
		t.Error("inactive subscription should not match GetByEvent")
	}

	if err := store.Delete(ctx, "wh_pg1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "wh_pg1"); err != ErrNotFound {
		t.Errorf("Get after delete: got %v, want ErrNotFound", err)
	}
}
