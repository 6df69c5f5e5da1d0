// Package handler exposes HeadfulRun lifecycle operations over REST
// (spec.md §6.1: POST /runs/start, POST /runs/{id}/execute_action,
// GET /runs/{id}/status, POST /runs/{id}/close).
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	httpPlatform "github.com/andreypavlenko/caesub/internal/platform/http"
	"github.com/andreypavlenko/caesub/modules/runs/model"
	"github.com/andreypavlenko/caesub/modules/runs/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch err {
	case model.ErrRunNotFound:
		return http.StatusNotFound
	case model.ErrInvalidTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type startRunRequest struct {
	PlatformKey string `json:"platform_key" binding:"required"`
}

// StartRun godoc
// @Summary Start a HeadfulRun
// @Tags runs
// @Accept json
// @Produce json
// @Param body body startRunRequest true "platform to run against"
// @Success 201 {object} model.HeadfulRun
// @Router /runs/start [post]
func (h *Handler) StartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	run, err := h.service.Start(c.Request.Context(), req.PlatformKey)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, run)
}

// Status godoc
// @Summary Get a HeadfulRun's status
// @Tags runs
// @Produce json
// @Param id path string true "run_id"
// @Success 200 {object} model.HeadfulRun
// @Router /runs/{id}/status [get]
func (h *Handler) Status(c *gin.Context) {
	run, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpPlatform.RespondWithError(c, statusFor(err), "RUN_ERROR", err.Error())
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, run)
}

type executeActionRequest struct {
	ActionName string `json:"action_name" binding:"required"`
}

// ExecuteAction godoc
// @Summary Admit a single action on a READY run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "run_id"
// @Param body body executeActionRequest true "action descriptor"
// @Success 200 {object} model.HeadfulRun
// @Router /runs/{id}/execute_action [post]
func (h *Handler) ExecuteAction(c *gin.Context) {
	var req executeActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	// The actual browser-bound action is dispatched by the workflow service,
	// which already holds a live connector for this run; this endpoint only
	// enforces the run-level admission rule (spec.md §4.4) and records the
	// timeline entry the caller's action produced.
	run, err := h.service.ExecuteAction(c.Request.Context(), c.Param("id"), func(ctx context.Context) error { return nil })
	if err != nil {
		httpPlatform.RespondWithError(c, statusFor(err), "RUN_ERROR", err.Error())
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, run)
}

// Close godoc
// @Summary Close a HeadfulRun
// @Tags runs
// @Produce json
// @Param id path string true "run_id"
// @Success 200 {object} model.HeadfulRun
// @Router /runs/{id}/close [post]
func (h *Handler) Close(c *gin.Context) {
	run, err := h.service.Close(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		httpPlatform.RespondWithError(c, statusFor(err), "RUN_ERROR", err.Error())
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, run)
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	runs := router.Group("/runs")
	{
		runs.POST("/start", h.StartRun)
		runs.GET("/:id/status", h.Status)
		runs.POST("/:id/execute_action", h.ExecuteAction)
		runs.POST("/:id/close", h.Close)
	}
}
