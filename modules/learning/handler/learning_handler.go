// Package handler exposes the Learning Hint Store over REST (spec.md
// §6.1: GET /api/learning/hints[?filters], POST
// /api/learning/hints/{id}/disable), following the teacher's gin + swaggo
// annotation convention.
package handler

import (
	"net/http"

	httpPlatform "github.com/andreypavlenko/caesub/internal/platform/http"
	"github.com/andreypavlenko/caesub/modules/learning/model"
	"github.com/andreypavlenko/caesub/modules/learning/service"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// ListHints godoc
// @Summary List learned hints
// @Tags learning
// @Produce json
// @Param subject_key query string false "filter by subject_key condition"
// @Param person_key query string false "filter by person_key condition"
// @Param enabled query bool false "filter by enabled flag"
// @Success 200 {array} model.LearnedHint
// @Router /api/learning/hints [get]
func (h *Handler) ListHints(c *gin.Context) {
	all, err := h.service.List(c.Request.Context())
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	subjectKey := c.Query("subject_key")
	personKey := c.Query("person_key")
	enabledStr := c.Query("enabled")

	out := make([]*model.LearnedHint, 0, len(all))
	for _, hint := range all {
		if subjectKey != "" && hint.Conditions.SubjectKey != subjectKey {
			continue
		}
		if personKey != "" && hint.Conditions.PersonKey != personKey {
			continue
		}
		if enabledStr != "" {
			wantEnabled := enabledStr == "true"
			if !hint.Disabled != wantEnabled {
				continue
			}
		}
		out = append(out, hint)
	}
	httpPlatform.RespondWithData(c, http.StatusOK, out)
}

type disableHintRequest struct {
	Reason string `json:"reason,omitempty"`
}

// DisableHint godoc
// @Summary Disable a learned hint so it is no longer consulted
// @Tags learning
// @Accept json
// @Produce json
// @Param id path string true "hint_id"
// @Param request body disableHintRequest false "optional reason"
// @Success 200 {object} map[string]string
// @Router /api/learning/hints/{id}/disable [post]
func (h *Handler) DisableHint(c *gin.Context) {
	var req disableHintRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	if err := h.service.Disable(c.Request.Context(), c.Param("id")); err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"message": "hint disabled"})
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	hints := router.Group("/learning/hints")
	{
		hints.GET("", h.ListHints)
		hints.POST("/:id/disable", h.DisableHint)
	}
}
