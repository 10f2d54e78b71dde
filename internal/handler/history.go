package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"demandforecast/internal/feature"
	"demandforecast/internal/ledger"
	"demandforecast/internal/models"
	"demandforecast/internal/repository"
)

// HistoryHandler serves the prediction history. With a repository wired the
// persisted rows are the source of truth; otherwise reads fall back to the
// in-memory ledger.
type HistoryHandler struct {
	Ledger *ledger.Ledger
	Repo   repository.Repository
}

func (h *HistoryHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/history", h.list)
}

// historyItem is the export schema: one JSON record per served prediction,
// append-ordered.
type historyItem struct {
	StoreID         string    `json:"store_id"`
	ProductID       string    `json:"product_id"`
	Date            string    `json:"date"`
	Price           float64   `json:"price"`
	PromotionFlag   int       `json:"promotion_flag"`
	Chain           string    `json:"chain"`
	Province        string    `json:"province"`
	Category        string    `json:"category"`
	Brand           string    `json:"brand"`
	PredictedDemand float64   `json:"predicted_demand"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
	ServedAt        time.Time `json:"served_at"`
}

// @Summary List served predictions
// @Tags history
// @Produce json
// @Param store_id query string false "filter by store"
// @Param product_id query string false "filter by product"
// @Param from query string false "RFC3339 or YYYY-MM-DD lower bound on served_at"
// @Param to query string false "RFC3339 or YYYY-MM-DD upper bound on served_at"
// @Success 200 {array} handler.historyItem
// @Failure 400 {object} handler.apiResponse
// @Router /api/v1/history [get]
func (h *HistoryHandler) list(c *gin.Context) {
	if h.Ledger == nil && h.Repo == nil {
		Error(c, http.StatusInternalServerError, "history unavailable", nil)
		return
	}

	from, err := parseTimeQuery(c.Query("from"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid from: "+err.Error(), nil)
		return
	}
	to, err := parseTimeQuery(c.Query("to"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid to: "+err.Error(), nil)
		return
	}

	storeID := strings.TrimSpace(c.Query("store_id"))
	productID := strings.TrimSpace(c.Query("product_id"))
	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)

	if h.Repo != nil {
		h.listPersisted(c, storeID, productID, from, to, limit, offset)
		return
	}

	filter := ledger.Filter{
		StoreID:   storeID,
		ProductID: productID,
		From:      from,
		To:        to,
	}
	total := int64(len(h.Ledger.List(filter)))
	filter.Limit = limit
	filter.Offset = offset

	entries := h.Ledger.List(filter)
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			StoreID:         e.Request.StoreID,
			ProductID:       e.Request.ProductID,
			Date:            e.Request.Date,
			Price:           e.Request.Price,
			PromotionFlag:   e.Request.PromotionFlag,
			Chain:           e.Request.Chain,
			Province:        e.Request.Province,
			Category:        e.Request.Category,
			Brand:           e.Request.Brand,
			PredictedDemand: e.Response.PredictedDemand,
			ConfidenceLower: e.Response.ConfidenceLower,
			ConfidenceUpper: e.Response.ConfidenceUpper,
			ServedAt:        e.ServedAt,
		})
	}

	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *HistoryHandler) listPersisted(c *gin.Context, storeID, productID string, from, to *time.Time, limit, offset int) {
	params := repository.ListPredictionRecordsParams{
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
	}
	if storeID != "" {
		params.StoreID = &storeID
	}
	if productID != "" {
		params.ProductID = &productID
	}

	records, err := h.Repo.ListPredictionRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "history query failed", nil)
		return
	}
	total, err := h.Repo.CountPredictionRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "history query failed", nil)
		return
	}

	items := make([]historyItem, 0, len(records))
	for _, r := range records {
		items = append(items, recordItem(r))
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func recordItem(r models.PredictionRecord) historyItem {
	return historyItem{
		StoreID:         r.StoreID,
		ProductID:       r.ProductID,
		Date:            r.Date,
		Price:           r.Price.InexactFloat64(),
		PromotionFlag:   r.PromotionFlag,
		Chain:           r.Chain,
		Province:        r.Province,
		Category:        r.Category,
		Brand:           r.Brand,
		PredictedDemand: r.PredictedDemand,
		ConfidenceLower: r.ConfidenceLower,
		ConfidenceUpper: r.ConfidenceUpper,
		ServedAt:        r.ServedAt,
	}
}

func parseTimeQuery(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	parsed, err := time.Parse(feature.DateLayout, raw)
	if err != nil {
		return nil, errors.New("must be RFC3339 or YYYY-MM-DD")
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
