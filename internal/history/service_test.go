package history

import (
	"context"
	"testing"
	"time"
)

func newTestService(t *testing.T) *SQLiteService {
	t.Helper()
	svc, err := NewSQLiteService(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestRecordHandFansOutPerParticipant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	playedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := svc.RecordHand(ctx, "table-1", "hand-1", playedAt, []ParticipantResult{
		{UserID: 1, NetChips: 20, Category: "Flush"},
		{UserID: 2, NetChips: -20, Category: "Two Pair", Folded: false},
	})
	if err != nil {
		t.Fatalf("RecordHand: %v", err)
	}

	items, err := svc.ListRecent(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item for user 1, got %d", len(items))
	}
	if items[0].NetChips != 20 || items[0].Category != "Flush" {
		t.Fatalf("unexpected item: %+v", items[0])
	}

	items2, err := svc.ListRecent(ctx, 2, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items2) != 1 || items2[0].NetChips != -20 {
		t.Fatalf("unexpected item for user 2: %+v", items2)
	}
}

func TestRecordHandIsIdempotentPerHandAndUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	participants := []ParticipantResult{{UserID: 1, NetChips: 5, Category: "High Card"}}
	if err := svc.RecordHand(ctx, "table-1", "hand-1", time.Now(), participants); err != nil {
		t.Fatalf("first RecordHand: %v", err)
	}
	if err := svc.RecordHand(ctx, "table-1", "hand-1", time.Now(), participants); err != nil {
		t.Fatalf("second RecordHand: %v", err)
	}

	items, err := svc.ListRecent(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly 1 row after duplicate RecordHand, got %d", len(items))
	}
}

func TestListRecentReturnsEmptyForUnknownUser(t *testing.T) {
	svc := newTestService(t)
	items, err := svc.ListRecent(context.Background(), 999, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}
