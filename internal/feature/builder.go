package feature

import (
	"math"
	"time"

	"demandforecast/internal/artifact"
	"demandforecast/internal/models"
)

// DateLayout is the request date format.
const DateLayout = "2006-01-02"

// Build turns one raw request plus the encoding table into the numeric vector
// the model expects, in the exact order declared by the artifact's feature
// schema. It is a pure function of its inputs.
//
// Numeric invariants are strict: price <= 0 or an unparseable date is a
// ValidationError. Categorical coverage is soft: unseen values resolve to the
// sentinel code and are reported in the returned fallback map, keyed by field
// name, true when the trained code was missing.
//
// A schema entry the builder cannot produce is a FeatureShapeError; the
// vector is never silently truncated or padded.
func Build(req models.PredictionRequest, table *artifact.EncodingTable, schema []string) ([]float64, map[string]bool, error) {
	if err := validate(req); err != nil {
		return nil, nil, err
	}
	date, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return nil, nil, &models.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	fallbacks := make(map[string]bool, 8)
	values := make(map[string]float64, 32)

	encode := func(field, raw string) {
		code, resolved := table.LookupCode(field, raw)
		values[field+"_encoded"] = code
		fallbacks[field] = !resolved
	}
	encode("store_id", req.StoreID)
	encode("product_id", req.ProductID)
	encode("chain", req.Chain)
	encode("province", req.Province)
	encode("category", req.Category)
	encode("brand", req.Brand)

	stats, statsResolved := table.LookupStats(req.StoreID, req.ProductID)
	fallbacks["rolling_stats"] = !statsResolved
	share, shareResolved := table.LookupShare(req.Category)
	fallbacks["category_share"] = !shareResolved

	values["price"] = req.Price
	values["promotion_flag"] = float64(req.PromotionFlag)
	values["rolling_mean_units"] = stats.MeanUnits
	values["rolling_trend"] = stats.Trend
	values["revenue_proxy"] = req.Price * stats.MeanUnits
	values["category_share"] = share

	addCalendar(values, date)

	vec := make([]float64, len(schema))
	for i, name := range schema {
		v, ok := values[name]
		if !ok {
			return nil, nil, &models.FeatureShapeError{Detail: "builder cannot produce feature " + name}
		}
		vec[i] = v
	}
	return vec, fallbacks, nil
}

func validate(req models.PredictionRequest) error {
	if req.Price <= 0 {
		return &models.ValidationError{Field: "price", Reason: "must be > 0"}
	}
	if req.PromotionFlag != 0 && req.PromotionFlag != 1 {
		return &models.ValidationError{Field: "promotion_flag", Reason: "must be 0 or 1"}
	}
	return nil
}

// addCalendar fills the date-derived seasonal features. Day-of-week is
// 0=Monday to match the training pipeline.
func addCalendar(values map[string]float64, date time.Time) {
	month := float64(date.Month())
	day := float64(date.Day())
	dow := float64((int(date.Weekday()) + 6) % 7)
	_, isoWeek := date.ISOWeek()
	doy := float64(date.YearDay())

	values["month"] = month
	values["day"] = day
	values["day_of_week"] = dow
	values["week_of_year"] = float64(isoWeek)
	values["quarter"] = float64((int(date.Month())-1)/3 + 1)
	values["is_weekend"] = boolFeature(dow >= 5)
	values["is_monday"] = boolFeature(dow == 0)
	values["is_friday"] = boolFeature(dow == 4)
	values["is_month_start"] = boolFeature(day <= 7)
	values["is_month_middle"] = boolFeature(day > 7 && day <= 21)
	values["is_month_end"] = boolFeature(day > 21)
	values["sin_month"] = math.Sin(2 * math.Pi * month / 12)
	values["cos_month"] = math.Cos(2 * math.Pi * month / 12)
	values["sin_day_of_week"] = math.Sin(2 * math.Pi * dow / 7)
	values["cos_day_of_week"] = math.Cos(2 * math.Pi * dow / 7)
	values["sin_day_of_year"] = math.Sin(2 * math.Pi * doy / 365)
	values["cos_day_of_year"] = math.Cos(2 * math.Pi * doy / 365)
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
