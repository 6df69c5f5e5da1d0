// Package handler exposes RunMetrics over REST.
package handler

import (
	"net/http"

	httpPlatform "github.com/andreypavlenko/caesub/internal/platform/http"
	"github.com/andreypavlenko/caesub/modules/metrics/service"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RunMetrics godoc
// @Summary Get one run's metrics
// @Router /api/runs/{run_id}/metrics [get]
func (h *Handler) RunMetrics(c *gin.Context) {
	m, err := h.service.Get(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusNotFound, "METRICS_NOT_FOUND", err.Error())
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, m)
}

// Summary godoc
// @Summary Get aggregate metrics across every run
// @Router /api/metrics/summary [get]
func (h *Handler) Summary(c *gin.Context) {
	s, err := h.service.Summary(c.Request.Context())
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, s)
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/runs/:run_id/metrics", h.RunMetrics)
	router.GET("/metrics/summary", h.Summary)
}
