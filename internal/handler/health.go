package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"demandforecast/internal/service"
)

type HealthHandler struct {
	Service *service.PredictionService
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check (model loaded)
// @Tags health
// @Success 200 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "service_missing", "model_loaded": false})
		return
	}
	health := h.Service.Health()
	if !health.ModelLoaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "model_missing", "model_loaded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "model_loaded": true})
}
