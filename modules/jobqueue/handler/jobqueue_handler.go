// Package handler exposes the Job Queue over REST, following the
// teacher's gin + swaggo annotation convention.
package handler

import (
	"net/http"

	httpPlatform "github.com/andreypavlenko/caesub/internal/platform/http"
	"github.com/andreypavlenko/caesub/modules/jobqueue/model"
	"github.com/andreypavlenko/caesub/modules/jobqueue/service"
	workflowmodel "github.com/andreypavlenko/caesub/modules/workflow/model"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

func statusFor(err error) int {
	switch model.GetErrorCode(err) {
	case model.CodeJobNotFound:
		return http.StatusNotFound
	case model.CodeJobAlreadyTerminal:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	httpPlatform.RespondWithError(c, statusFor(err), string(model.GetErrorCode(err)), model.GetErrorMessage(err))
}

// CreateJob godoc
// @Summary Enqueue an apply job
// @Router /api/jobs [post]
func (h *Handler) CreateJob(c *gin.Context) {
	var req workflowmodel.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	job, err := h.service.Enqueue(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, job)
}

// ListJobs godoc
// @Summary List queued and finished jobs
// @Router /api/jobs [get]
func (h *Handler) ListJobs(c *gin.Context) {
	jobs, err := h.service.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, jobs)
}

// GetJob godoc
// @Summary Get one job by id
// @Router /api/jobs/{id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, job)
}

// CancelJob godoc
// @Summary Cancel a queued or running job
// @Router /api/jobs/{id}/cancel [post]
func (h *Handler) CancelJob(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "job canceled")
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	jobs := router.Group("/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.POST("/:id/cancel", h.CancelJob)
	}
}
