package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"demandforecast/internal/models"
)

// SentinelCode stands in for any categorical value that was not seen during
// training. Unseen values degrade to this code instead of rejecting the
// request.
const SentinelCode = -1.0

// Categorical fields the encoding table must carry a map for. A missing map
// is a load failure, not a runtime fallback.
var requiredFields = []string{
	"store_id", "product_id", "chain", "province", "category", "brand",
}

// RollingStats is the (store, product) sales summary computed at training
// time: mean daily units and the recent trend of that mean.
type RollingStats struct {
	MeanUnits float64 `json:"mean_units"`
	Trend     float64 `json:"trend"`
}

type encodingFile struct {
	Version       string                        `json:"version"`
	Fields        map[string]map[string]float64 `json:"fields"`
	CategoryShare map[string]float64            `json:"category_share"`
	RollingStats  map[string]RollingStats       `json:"rolling_stats"`
	GlobalStats   RollingStats                  `json:"global_stats"`
	DefaultShare  float64                       `json:"default_share"`
}

// EncodingTable maps raw categorical values to trained numeric codes and
// holds the precomputed aggregate statistics. Built once at startup and
// read-only afterwards, so it is safe for unrestricted concurrent use.
type EncodingTable struct {
	version       string
	fields        map[string]map[string]float64
	categoryShare map[string]float64
	rollingStats  map[string]RollingStats
	globalStats   RollingStats
	defaultShare  float64
}

// LoadEncodingTable reads the encoder artifact from path. Any read, decode or
// completeness failure is an ArtifactError.
func LoadEncodingTable(path string) (*EncodingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ArtifactError{Source: path, Err: err}
	}

	var file encodingFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &models.ArtifactError{Source: path, Err: err}
	}

	for _, field := range requiredFields {
		if len(file.Fields[field]) == 0 {
			return nil, &models.ArtifactError{
				Source: path,
				Err:    fmt.Errorf("missing category map for %q", field),
			}
		}
	}

	table := &EncodingTable{
		version:       file.Version,
		fields:        file.Fields,
		categoryShare: file.CategoryShare,
		rollingStats:  file.RollingStats,
		globalStats:   file.GlobalStats,
		defaultShare:  file.DefaultShare,
	}
	if table.defaultShare <= 0 {
		table.defaultShare = 0.1
	}
	return table, nil
}

func (t *EncodingTable) Version() string { return t.version }

// LookupCode resolves a raw categorical value to its trained code. Unseen
// values (or unknown fields) return the sentinel code and resolved=false;
// this never fails.
func (t *EncodingTable) LookupCode(field, raw string) (code float64, resolved bool) {
	values, ok := t.fields[field]
	if !ok {
		return SentinelCode, false
	}
	code, ok = values[raw]
	if !ok {
		return SentinelCode, false
	}
	return code, true
}

// LookupStats returns the rolling-sales summary for a (store, product) pair,
// falling back to the global averages for cold-start combinations.
func (t *EncodingTable) LookupStats(storeID, productID string) (stats RollingStats, resolved bool) {
	stats, ok := t.rollingStats[statsKey(storeID, productID)]
	if !ok {
		return t.globalStats, false
	}
	return stats, true
}

// LookupShare returns the category's share of revenue, or the default share
// for categories absent from the table.
func (t *EncodingTable) LookupShare(category string) (share float64, resolved bool) {
	share, ok := t.categoryShare[category]
	if !ok {
		return t.defaultShare, false
	}
	return share, true
}

func statsKey(storeID, productID string) string {
	return storeID + "|" + productID
}
