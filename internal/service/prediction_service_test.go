package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"demandforecast/internal/artifact"
	"demandforecast/internal/inference"
	"demandforecast/internal/ledger"
	"demandforecast/internal/models"
)

const tableFixture = `{
  "version": "2024.01",
  "fields": {
    "store_id": {"ST_001": 0},
    "product_id": {"PR_1001": 0},
    "chain": {"Loblaws": 0},
    "province": {"ON": 0},
    "category": {"Dairy": 0},
    "brand": {"TestBrand": 0}
  },
  "category_share": {"Dairy": 0.18},
  "rolling_stats": {"ST_001|PR_1001": {"mean_units": 12.5, "trend": 0.4}},
  "global_stats": {"mean_units": 10.0, "trend": 0.0}
}`

type stubModel struct {
	value float64
}

func (s stubModel) Predict(vec []float64) float64 { return s.value }

func newTestService(t *testing.T, point float64) *PredictionService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encoders.json")
	if err := os.WriteFile(path, []byte(tableFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	table, err := artifact.LoadEncodingTable(path)
	if err != nil {
		t.Fatalf("load table: %v", err)
	}

	meta := artifact.Metadata{
		ModelID:     "demand-gbt",
		Version:     "2024.01.0",
		Calibration: artifact.Calibration{RelativeHalfWidth: 0.2},
		Features: []string{
			"price", "promotion_flag", "store_id_encoded", "product_id_encoded",
			"category_share", "rolling_mean_units", "day_of_week", "sin_day_of_year",
		},
	}
	return &PredictionService{
		Table:   table,
		Wrapper: &inference.Wrapper{Model: stubModel{value: point}, Calibration: meta.Calibration},
		Meta:    meta,
		Ledger:  ledger.New(nil, 0),
	}
}

func testRequest() models.PredictionRequest {
	return models.PredictionRequest{
		StoreID:       "ST_001",
		ProductID:     "PR_1001",
		Date:          "2024-01-01",
		Price:         5.99,
		PromotionFlag: 1,
		Chain:         "Loblaws",
		Province:      "ON",
		Category:      "Dairy",
		Brand:         "TestBrand",
	}
}

func TestServeReferenceExample(t *testing.T) {
	svc := newTestService(t, 6.37)

	resp, err := svc.Serve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	if resp.PredictedDemand != 6.37 {
		t.Fatalf("point = %v, want 6.37", resp.PredictedDemand)
	}
	if resp.ConfidenceLower != 5.1 {
		t.Fatalf("lower = %v, want 5.1", resp.ConfidenceLower)
	}
	if resp.ConfidenceUpper != 7.64 {
		t.Fatalf("upper = %v, want 7.64", resp.ConfidenceUpper)
	}
	if resp.ConfidenceLower > resp.PredictedDemand || resp.PredictedDemand > resp.ConfidenceUpper {
		t.Fatalf("bounds violated: %v <= %v <= %v",
			resp.ConfidenceLower, resp.PredictedDemand, resp.ConfidenceUpper)
	}
	if resp.ModelVersion != "2024.01.0" {
		t.Fatalf("model version = %q", resp.ModelVersion)
	}
	if resp.ServedAt.IsZero() {
		t.Fatalf("served_at not set")
	}
}

func TestServeIdempotentButLedgerGrows(t *testing.T) {
	svc := newTestService(t, 6.37)
	req := testRequest()

	first, err := svc.Serve(context.Background(), req)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	second, err := svc.Serve(context.Background(), req)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}

	if first.PredictedDemand != second.PredictedDemand ||
		first.ConfidenceLower != second.ConfidenceLower ||
		first.ConfidenceUpper != second.ConfidenceUpper {
		t.Fatalf("identical requests gave different estimates: %+v vs %+v", first, second)
	}

	entries := svc.Ledger.List(ledger.Filter{})
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(entries))
	}
	if entries[1].ServedAt.Before(entries[0].ServedAt) {
		t.Fatalf("ledger timestamps not non-decreasing")
	}
}

func TestServeUnseenCategoricalsSucceed(t *testing.T) {
	svc := newTestService(t, 3.0)
	req := testRequest()
	req.StoreID = "ST_999"
	req.Category = "Frozen"
	req.Brand = "NeverSeen"

	resp, err := svc.Serve(context.Background(), req)
	if err != nil {
		t.Fatalf("serve with unseen categoricals: %v", err)
	}
	if resp.PredictedDemand < 0 {
		t.Fatalf("negative demand %v", resp.PredictedDemand)
	}

	entries := svc.Ledger.List(ledger.Filter{StoreID: "ST_999"})
	if len(entries) != 1 {
		t.Fatalf("entry not recorded")
	}
	if !entries[0].Fallbacks["store_id"] {
		t.Fatalf("store_id fallback not recorded in ledger")
	}
}

func TestServeValidation(t *testing.T) {
	svc := newTestService(t, 6.37)

	tests := []struct {
		name   string
		mutate func(*models.PredictionRequest)
	}{
		{"zero price", func(r *models.PredictionRequest) { r.Price = 0 }},
		{"negative price", func(r *models.PredictionRequest) { r.Price = -2 }},
		{"bad date", func(r *models.PredictionRequest) { r.Date = "not-a-date" }},
	}
	for _, tt := range tests {
		req := testRequest()
		tt.mutate(&req)
		_, err := svc.Serve(context.Background(), req)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: err = %v, want ValidationError", tt.name, err)
		}
	}

	if svc.Ledger.Len() != 0 {
		t.Fatalf("rejected requests were recorded")
	}
}

func TestServeSchemaMismatch(t *testing.T) {
	svc := newTestService(t, 6.37)
	svc.Meta.Features = append(svc.Meta.Features, "lag_7_sales")

	_, err := svc.Serve(context.Background(), testRequest())
	var fse *models.FeatureShapeError
	if !errors.As(err, &fse) {
		t.Fatalf("err = %v, want FeatureShapeError", err)
	}
}

func TestServeWithoutModel(t *testing.T) {
	svc := newTestService(t, 6.37)
	svc.Wrapper = &inference.Wrapper{}

	if health := svc.Health(); health.ModelLoaded {
		t.Fatalf("health reports model loaded")
	}

	_, err := svc.Serve(context.Background(), testRequest())
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if svc.Ledger.Len() != 0 {
		t.Fatalf("unserved request was recorded")
	}
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, 6.37)
	if health := svc.Health(); !health.ModelLoaded {
		t.Fatalf("health = %+v, want model loaded", health)
	}
}
