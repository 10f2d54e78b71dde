package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"demandforecast/internal/models"
	"demandforecast/internal/service"
)

type PredictHandler struct {
	Service *service.PredictionService
	Logger  *zap.Logger
}

func (h *PredictHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.POST("/predict", h.predict)
	group.POST("/predict/batch", h.predictBatch)
}

type batchRequest struct {
	Predictions []models.PredictionRequest `json:"predictions"`
}

type batchResponse struct {
	Predictions  []models.PredictionResponse `json:"predictions"`
	SuccessCount int                         `json:"success_count"`
	ErrorCount   int                         `json:"error_count"`
	Errors       []string                    `json:"errors"`
}

// @Summary Predict demand for one store/product/date
// @Tags predict
// @Accept json
// @Produce json
// @Param request body models.PredictionRequest true "prediction request"
// @Success 200 {object} models.PredictionResponse
// @Router /api/v1/predict [post]
func (h *PredictHandler) predict(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	resp, err := h.Service.Serve(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, resp, nil)
}

// @Summary Predict demand for a batch of requests
// @Tags predict
// @Accept json
// @Produce json
// @Success 200 {object} handler.batchResponse
// @Router /api/v1/predict/batch [post]
func (h *PredictHandler) predictBatch(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	out := batchResponse{Errors: []string{}}
	for i, item := range req.Predictions {
		resp, err := h.Service.Serve(c.Request.Context(), item)
		if err != nil {
			if errors.Is(err, models.ErrModelUnavailable) {
				h.fail(c, err)
				return
			}
			out.Errors = append(out.Errors, fmt.Sprintf("request %d: %v", i, err))
			continue
		}
		out.Predictions = append(out.Predictions, resp)
	}
	out.SuccessCount = len(out.Predictions)
	out.ErrorCount = len(out.Errors)
	Ok(c, out, nil)
}

func (h *PredictHandler) fail(c *gin.Context, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		Error(c, http.StatusBadRequest, ve.Error(), nil)
		return
	}
	if errors.Is(err, models.ErrModelUnavailable) {
		Error(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	var fse *models.FeatureShapeError
	if errors.As(err, &fse) {
		if h.Logger != nil {
			h.Logger.Error("feature shape mismatch", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, fse.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Error("prediction failed", zap.Error(err))
	}
	Error(c, http.StatusInternalServerError, "internal error", nil)
}
