package gormrepository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"demandforecast/internal/models"
	"demandforecast/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertPredictionRecords(ctx context.Context, items []models.PredictionRecord) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (s *Store) ListPredictionRecords(ctx context.Context, params repository.ListPredictionRecordsParams) ([]models.PredictionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyFilters(s.db.WithContext(ctx).Model(&models.PredictionRecord{}), params)
	query = query.Order("served_at asc")

	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	var items []models.PredictionRecord
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPredictionRecords(ctx context.Context, params repository.ListPredictionRecordsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	query := applyFilters(s.db.WithContext(ctx).Model(&models.PredictionRecord{}), params)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyFilters(query *gorm.DB, params repository.ListPredictionRecordsParams) *gorm.DB {
	if params.StoreID != nil && strings.TrimSpace(*params.StoreID) != "" {
		query = query.Where("store_id = ?", strings.TrimSpace(*params.StoreID))
	}
	if params.ProductID != nil && strings.TrimSpace(*params.ProductID) != "" {
		query = query.Where("product_id = ?", strings.TrimSpace(*params.ProductID))
	}
	if params.From != nil && !params.From.IsZero() {
		query = query.Where("served_at >= ?", *params.From)
	}
	if params.To != nil && !params.To.IsZero() {
		query = query.Where("served_at <= ?", *params.To)
	}
	return query
}
