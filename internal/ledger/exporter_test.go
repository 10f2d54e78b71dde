package ledger

import (
	"context"
	"errors"
	"testing"

	"demandforecast/internal/models"
	"demandforecast/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
type stubRepo struct {
	inserted []models.PredictionRecord
	fail     bool
}

func (s *stubRepo) InsertPredictionRecords(ctx context.Context, items []models.PredictionRecord) error {
	if s.fail {
		return errors.New("db down")
	}
	s.inserted = append(s.inserted, items...)
	return nil
}

func (s *stubRepo) ListPredictionRecords(ctx context.Context, params repository.ListPredictionRecordsParams) ([]models.PredictionRecord, error) {
	return s.inserted, nil
}

func (s *stubRepo) CountPredictionRecords(ctx context.Context, params repository.ListPredictionRecordsParams) (int64, error) {
	return int64(len(s.inserted)), nil
}

func TestExporterFlush(t *testing.T) {
	l := New(nil, 0)
	l.Record(Entry{
		Request: models.PredictionRequest{
			StoreID: "ST_001", ProductID: "PR_1001", Date: "2024-01-01",
			Price: 5.99, PromotionFlag: 1, Chain: "Loblaws", Province: "ON",
			Category: "Dairy", Brand: "TestBrand",
		},
		Response: models.PredictionResponse{
			PredictedDemand: 6.37, ConfidenceLower: 5.1, ConfidenceUpper: 7.64,
			ModelVersion: "2024.01.0",
		},
		Fallbacks: map[string]bool{"brand": true},
	})

	repo := &stubRepo{}
	e := &Exporter{Ledger: l, Repo: repo}
	e.Flush(context.Background())

	if len(repo.inserted) != 1 {
		t.Fatalf("inserted = %d, want 1", len(repo.inserted))
	}
	rec := repo.inserted[0]
	if rec.StoreID != "ST_001" || rec.ProductID != "PR_1001" {
		t.Fatalf("record keys: %+v", rec)
	}
	if rec.Price.String() != "5.99" {
		t.Fatalf("price = %s, want 5.99", rec.Price.String())
	}
	if rec.PredictedDemand != 6.37 {
		t.Fatalf("predicted = %v", rec.PredictedDemand)
	}
	if len(rec.Payload) == 0 {
		t.Fatalf("payload empty")
	}
	if rec.ServedAt.IsZero() {
		t.Fatalf("served_at not set")
	}

	if got := len(l.Unflushed()); got != 0 {
		t.Fatalf("unflushed after flush: %d", got)
	}

	// Second flush with nothing pending is a no-op.
	e.Flush(context.Background())
	if len(repo.inserted) != 1 {
		t.Fatalf("no-op flush inserted records")
	}
}

func TestExporterFlushFailureRetainsEntries(t *testing.T) {
	l := New(nil, 0)
	l.Record(Entry{Request: models.PredictionRequest{StoreID: "ST_001"}})

	repo := &stubRepo{fail: true}
	e := &Exporter{Ledger: l, Repo: repo}
	e.Flush(context.Background())

	if got := len(l.Unflushed()); got != 1 {
		t.Fatalf("entries lost on failed flush: unflushed = %d", got)
	}

	repo.fail = false
	e.Flush(context.Background())
	if len(repo.inserted) != 1 {
		t.Fatalf("retry did not persist entry")
	}
	if got := len(l.Unflushed()); got != 0 {
		t.Fatalf("unflushed after retry: %d", got)
	}
}
