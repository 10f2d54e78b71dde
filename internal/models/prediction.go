package models

import "time"

// PredictionRequest is one store/product/date demand question. All fields are
// required by the caller; price and date carry hard invariants (price > 0,
// date in YYYY-MM-DD), categorical fields are soft and may be unseen.
type PredictionRequest struct {
	StoreID       string  `json:"store_id"`
	ProductID     string  `json:"product_id"`
	Date          string  `json:"date"`
	Price         float64 `json:"price"`
	PromotionFlag int     `json:"promotion_flag"`
	Chain         string  `json:"chain"`
	Province      string  `json:"province"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand"`
}

// PredictionResponse carries the point estimate plus the derived confidence
// interval. Invariant: 0 <= ConfidenceLower <= PredictedDemand <= ConfidenceUpper.
type PredictionResponse struct {
	StoreID         string    `json:"store_id"`
	ProductID       string    `json:"product_id"`
	Date            string    `json:"date"`
	PredictedDemand float64   `json:"predicted_demand"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
	ModelVersion    string    `json:"model_version"`
	ServedAt        time.Time `json:"served_at"`
}

// Health is the service readiness report.
type Health struct {
	ModelLoaded bool `json:"model_loaded"`
}
