package repository

import (
	"context"
	"time"

	"demandforecast/internal/models"
)

// ListPredictionRecordsParams filters the persisted prediction history.
type ListPredictionRecordsParams struct {
	StoreID   *string
	ProductID *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Repository is the persistence boundary for exported ledger entries.
type Repository interface {
	InsertPredictionRecords(ctx context.Context, items []models.PredictionRecord) error
	ListPredictionRecords(ctx context.Context, params ListPredictionRecordsParams) ([]models.PredictionRecord, error)
	CountPredictionRecords(ctx context.Context, params ListPredictionRecordsParams) (int64, error)
}
