package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"demandforecast/internal/artifact"
)

type ModelInfoHandler struct {
	Meta   artifact.Metadata
	Loaded bool
}

func (h *ModelInfoHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/model", h.info)
}

type modelInfo struct {
	ModelID           string    `json:"model_id"`
	Version           string    `json:"version"`
	TrainedAt         time.Time `json:"trained_at"`
	FeatureCount      int       `json:"feature_count"`
	RelativeHalfWidth float64   `json:"relative_half_width"`
}

// @Summary Deployed model metadata
// @Tags model
// @Produce json
// @Success 200 {object} handler.modelInfo
// @Router /api/v1/model [get]
func (h *ModelInfoHandler) info(c *gin.Context) {
	if !h.Loaded {
		Error(c, http.StatusServiceUnavailable, "model not loaded", nil)
		return
	}
	Ok(c, modelInfo{
		ModelID:           h.Meta.ModelID,
		Version:           h.Meta.Version,
		TrainedAt:         h.Meta.TrainedAt,
		FeatureCount:      len(h.Meta.Features),
		RelativeHalfWidth: h.Meta.Calibration.RelativeHalfWidth,
	}, nil)
}
