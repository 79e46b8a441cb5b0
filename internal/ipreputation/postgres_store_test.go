//go:build integration

package ipreputation

import (
	"context"
	"testing"

	"github.com/silentauth/silentauth/internal/testutil"
)

func TestPostgresReputation_RecordAttempt(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	r, err := store.RecordAttempt(ctx, "198.51.100.7", OutcomeSuccess)
	if err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}
	if r.TotalAttempts != 1 || r.SuccessfulAttempts != 1 {
		t.Errorf("counters: got total=%d success=%d, want 1/1", r.TotalAttempts, r.SuccessfulAttempts)
	}
	if r.ReputationScore != 1.0 {
		t.Errorf("ReputationScore: got %f, want 1.0", r.ReputationScore)
	}

	r, err = store.RecordAttempt(ctx, "198.51.100.7", OutcomeFailure)
	if err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}
	if r.ReputationScore != 0.5 {
		t.Errorf("ReputationScore after failure: got %f, want 0.5", r.ReputationScore)
	}
}

func TestPostgresReputation_Blacklist(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	if _, err := store.SetBlacklist(ctx, "203.0.113.9", true, "credential stuffing"); err != nil {
		t.Fatalf("SetBlacklist failed: %v", err)
	}

	got, err := store.Get(ctx, "203.0.113.9")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Blacklisted || got.BlacklistReason != "credential stuffing" {
		t.Errorf("blacklist state: got %v/%q", got.Blacklisted, got.BlacklistReason)
	}

	list, err := store.ListBlacklisted(ctx)
	if err != nil {
		t.Fatalf("ListBlacklisted failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListBlacklisted: got %d entries, want 1", len(list))
	}

	if _, err := store.SetBlacklist(ctx, "203.0.113.9", false, ""); err != nil {
		t.Fatalf("SetBlacklist clear failed: %v", err)
	}
	got, err = store.Get(ctx, "203.0.113.9")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Blacklisted {
		t.Error("expected blacklist cleared")
	}
}
