package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PredictionRecord is the persisted form of a ledger entry, one row per served
// prediction, append-ordered by served_at.
type PredictionRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	StoreID   string `gorm:"type:varchar(50);not null;index"`
	ProductID string `gorm:"type:varchar(50);not null;index"`
	Date      string `gorm:"type:varchar(10);not null"`

	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PromotionFlag int             `gorm:"not null"`
	Chain         string          `gorm:"type:varchar(100)"`
	Province      string          `gorm:"type:varchar(10)"`
	Category      string          `gorm:"type:varchar(100)"`
	Brand         string          `gorm:"type:varchar(100)"`

	PredictedDemand float64 `gorm:"not null"`
	ConfidenceLower float64 `gorm:"not null"`
	ConfidenceUpper float64 `gorm:"not null"`

	ModelVersion string         `gorm:"type:varchar(50)"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`

	ServedAt  time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PredictionRecord) TableName() string {
	return "prediction_records"
}
