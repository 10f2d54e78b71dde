package ledger

import (
	"testing"
	"time"

	"demandforecast/internal/models"
)

func entryFor(storeID, productID string) Entry {
	return Entry{
		Request: models.PredictionRequest{
			StoreID:   storeID,
			ProductID: productID,
			Date:      "2024-01-01",
			Price:     5.99,
		},
		Response: models.PredictionResponse{PredictedDemand: 6.37},
	}
}

func TestRecordOrdering(t *testing.T) {
	l := New(nil, 0)

	for i := 0; i < 50; i++ {
		l.Record(entryFor("ST_001", "PR_1001"))
	}

	entries := l.List(Filter{})
	if len(entries) != 50 {
		t.Fatalf("len = %d, want 50", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ServedAt.Before(entries[i-1].ServedAt) {
			t.Fatalf("timestamps decrease at %d", i)
		}
	}
}

func TestRecordStampsResponse(t *testing.T) {
	l := New(nil, 0)
	entry := l.Record(entryFor("ST_001", "PR_1001"))
	if entry.ServedAt.IsZero() {
		t.Fatalf("ServedAt not stamped")
	}
	if !entry.Response.ServedAt.Equal(entry.ServedAt) {
		t.Fatalf("response timestamp %v != entry %v", entry.Response.ServedAt, entry.ServedAt)
	}
}

func TestListFilters(t *testing.T) {
	l := New(nil, 0)
	l.Record(entryFor("ST_001", "PR_1001"))
	l.Record(entryFor("ST_001", "PR_1002"))
	l.Record(entryFor("ST_002", "PR_1001"))

	if got := len(l.List(Filter{StoreID: "ST_001"})); got != 2 {
		t.Fatalf("store filter: %d, want 2", got)
	}
	if got := len(l.List(Filter{ProductID: "PR_1001"})); got != 2 {
		t.Fatalf("product filter: %d, want 2", got)
	}
	if got := len(l.List(Filter{StoreID: "ST_002", ProductID: "PR_1002"})); got != 0 {
		t.Fatalf("combined filter: %d, want 0", got)
	}

	future := time.Now().UTC().Add(time.Hour)
	if got := len(l.List(Filter{From: &future})); got != 0 {
		t.Fatalf("future From: %d, want 0", got)
	}
	past := time.Now().UTC().Add(-time.Hour)
	if got := len(l.List(Filter{From: &past, To: &future})); got != 3 {
		t.Fatalf("range filter: %d, want 3", got)
	}
}

func TestListLimitOffset(t *testing.T) {
	l := New(nil, 0)
	for i := 0; i < 10; i++ {
		l.Record(entryFor("ST_001", "PR_1001"))
	}

	if got := len(l.List(Filter{Limit: 3})); got != 3 {
		t.Fatalf("limit: %d, want 3", got)
	}
	if got := len(l.List(Filter{Offset: 8})); got != 2 {
		t.Fatalf("offset: %d, want 2", got)
	}
	if got := len(l.List(Filter{Offset: 100})); got != 0 {
		t.Fatalf("offset past end: %d, want 0", got)
	}
}

func TestUnflushedWatermark(t *testing.T) {
	l := New(nil, 0)
	for i := 0; i < 5; i++ {
		l.Record(entryFor("ST_001", "PR_1001"))
	}

	if got := len(l.Unflushed()); got != 5 {
		t.Fatalf("unflushed: %d, want 5", got)
	}
	l.MarkFlushed(5)
	if got := len(l.Unflushed()); got != 0 {
		t.Fatalf("unflushed after mark: %d, want 0", got)
	}

	l.Record(entryFor("ST_001", "PR_1001"))
	if got := len(l.Unflushed()); got != 1 {
		t.Fatalf("unflushed after new record: %d, want 1", got)
	}
}
