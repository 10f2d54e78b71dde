package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"demandforecast/internal/artifact"
	"demandforecast/internal/feature"
	"demandforecast/internal/inference"
	"demandforecast/internal/ledger"
	"demandforecast/internal/models"
)

// PredictionService orchestrates feature builder -> inference wrapper ->
// ledger for each request. Each Serve call is a single synchronous pass with
// no internal concurrency; the table and model are read-only shared state.
type PredictionService struct {
	Table   *artifact.EncodingTable
	Wrapper *inference.Wrapper
	Meta    artifact.Metadata
	Ledger  *ledger.Ledger
	Logger  *zap.Logger
}

// Serve predicts demand for one request. Error taxonomy: ValidationError
// (bad price/date/promotion flag), FeatureShapeError (artifact/version
// mismatch), ErrModelUnavailable (no model handle). The ledger append is
// fire-and-forget: it cannot fail the call.
func (s *PredictionService) Serve(ctx context.Context, req models.PredictionRequest) (models.PredictionResponse, error) {
	if !s.Wrapper.Loaded() {
		return models.PredictionResponse{}, models.ErrModelUnavailable
	}

	vec, fallbacks, err := feature.Build(req, s.Table, s.Meta.Features)
	if err != nil {
		return models.PredictionResponse{}, err
	}

	point, lower, upper, err := s.Wrapper.PredictWithInterval(vec)
	if err != nil {
		return models.PredictionResponse{}, err
	}

	resp := models.PredictionResponse{
		StoreID:         req.StoreID,
		ProductID:       req.ProductID,
		Date:            req.Date,
		PredictedDemand: round2(point),
		ConfidenceLower: round2(lower),
		ConfidenceUpper: round2(upper),
		ModelVersion:    s.Meta.Version,
	}

	if s.Ledger != nil {
		entry := s.Ledger.Record(ledger.Entry{
			Request:   req,
			Response:  resp,
			Fallbacks: fallbacks,
		})
		resp.ServedAt = entry.ServedAt
	}

	if s.Logger != nil {
		s.Logger.Debug("prediction served",
			zap.String("store_id", req.StoreID),
			zap.String("product_id", req.ProductID),
			zap.String("date", req.Date),
			zap.Float64("predicted_demand", resp.PredictedDemand),
			zap.Int("fallbacks", countFallbacks(fallbacks)),
		)
	}
	return resp, nil
}

// Health reports whether the model handle is loaded. No inference is run.
func (s *PredictionService) Health() models.Health {
	return models.Health{ModelLoaded: s.Wrapper.Loaded()}
}

func countFallbacks(fallbacks map[string]bool) int {
	n := 0
	for _, used := range fallbacks {
		if used {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
