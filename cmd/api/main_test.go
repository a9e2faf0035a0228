package main

import (
	"context"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/idempotency"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
)

func TestPruneOnce_RemovesExpiredRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := memclock.NewManualClock(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	store := memidempotency.NewStore()

	old := idempotency.Fingerprint{Key: "old", Subject: "u1", Callable: "inviteByEmail", BodyHash: "h"}
	recent := idempotency.Fingerprint{Key: "recent", Subject: "u1", Callable: "inviteByEmail", BodyHash: "h"}
	if err := store.Put(ctx, old, idempotency.Record{StatusCode: 200, CreatedAt: clk.Now().Add(-25 * time.Hour)}); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	if err := store.Put(ctx, recent, idempotency.Record{StatusCode: 200, CreatedAt: clk.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("Put recent: %v", err)
	}

	pruneOnce(ctx, store, clk, 24*time.Hour)

	if _, ok, _ := store.Get(ctx, old); ok {
		t.Fatalf("expired record survived")
	}
	if _, ok, _ := store.Get(ctx, recent); !ok {
		t.Fatalf("recent record was pruned")
	}
}
