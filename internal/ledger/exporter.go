package ledger

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"demandforecast/internal/models"
	"demandforecast/internal/repository"
)

// Exporter drains the in-memory ledger into the repository. Export failures
// are logged and swallowed; entries stay in memory until a flush succeeds, so
// losing a history row never blocks the serving path.
type Exporter struct {
	Ledger *Ledger
	Repo   repository.Repository
	Logger *zap.Logger
}

// Flush persists all unflushed entries in one batch.
func (e *Exporter) Flush(ctx context.Context) {
	if e == nil || e.Ledger == nil || e.Repo == nil {
		return
	}

	entries := e.Ledger.Unflushed()
	if len(entries) == 0 {
		return
	}

	records := make([]models.PredictionRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, toRecord(entry))
	}

	if err := e.Repo.InsertPredictionRecords(ctx, records); err != nil {
		if e.Logger != nil {
			e.Logger.Warn("ledger export failed, entries retained",
				zap.Int("entries", len(entries)), zap.Error(err))
		}
		return
	}

	e.Ledger.MarkFlushed(len(entries))
	if e.Logger != nil {
		e.Logger.Info("ledger exported", zap.Int("entries", len(entries)))
	}
}

type recordPayload struct {
	Fallbacks    map[string]bool `json:"fallbacks,omitempty"`
	ModelVersion string          `json:"model_version,omitempty"`
}

func toRecord(entry Entry) models.PredictionRecord {
	payload, _ := json.Marshal(recordPayload{
		Fallbacks:    entry.Fallbacks,
		ModelVersion: entry.Response.ModelVersion,
	})

	return models.PredictionRecord{
		StoreID:         entry.Request.StoreID,
		ProductID:       entry.Request.ProductID,
		Date:            entry.Request.Date,
		Price:           decimal.NewFromFloat(entry.Request.Price).Round(2),
		PromotionFlag:   entry.Request.PromotionFlag,
		Chain:           entry.Request.Chain,
		Province:        entry.Request.Province,
		Category:        entry.Request.Category,
		Brand:           entry.Request.Brand,
		PredictedDemand: entry.Response.PredictedDemand,
		ConfidenceLower: entry.Response.ConfidenceLower,
		ConfidenceUpper: entry.Response.ConfidenceUpper,
		ModelVersion:    entry.Response.ModelVersion,
		Payload:         payload,
		ServedAt:        entry.ServedAt,
	}
}
