// Package handler exposes the Policy + Plan + Apply workflow over REST,
// following the teacher's gin + swaggo annotation convention
// (modules/repository/handler).
package handler

import (
	"fmt"
	"net/http"

	httpPlatform "github.com/andreypavlenko/caesub/internal/platform/http"
	"github.com/andreypavlenko/caesub/modules/workflow/model"
	"github.com/andreypavlenko/caesub/modules/workflow/service"
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
	case model.CodePlanNotFound, model.CodeDecisionPackNotFound, model.CodePresetNotFound:
		return http.StatusNotFound
	case model.CodePlanAlreadySealed:
		return http.StatusConflict
	case model.CodeApplyNotDevMode, model.CodeApplyMissingHeader, model.CodeApplyOverHardCap,
		model.CodeApplyItemNotAutoUpload, model.CodeApplyItemNotInPlan:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	httpPlatform.RespondWithError(c, statusFor(err), string(model.GetErrorCode(err)), model.GetErrorMessage(err))
}

// buildPlanRequestBody is the shared JSON body for both plan-build
// endpoints (spec.md §6.1: the two only differ in caller intent).
type buildPlanRequestBody struct {
	PlatformKey string `json:"platform_key" binding:"required"`
	CoordLabel  string `json:"coord_label"`
	CompanyKey  string `json:"company_key"`
	PersonKey   string `json:"person_key"`
	Limit       int    `json:"limit"`
	MaxPages    int    `json:"max_pages"`
}

func (h *Handler) buildPlan(c *gin.Context, onlyTarget bool) {
	var body buildPlanRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	plan, err := h.service.BuildPlan(c.Request.Context(), service.BuildPlanRequest{
		PlatformKey: body.PlatformKey,
		CoordLabel:  body.CoordLabel,
		CompanyKey:  body.CompanyKey,
		PersonKey:   body.PersonKey,
		OnlyTarget:  onlyTarget,
		Limit:       body.Limit,
		MaxPages:    body.MaxPages,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, plan)
}

// BuildReadonlyPlan godoc
// @Summary Build a read-only plan (preview, no scope restriction)
// @Tags workflow
// @Accept json
// @Produce json
// @Param request body buildPlanRequestBody true "scope"
// @Success 200 {object} model.Plan
// @Router /api/plan/build_readonly [post]
func (h *Handler) BuildReadonlyPlan(c *gin.Context) { h.buildPlan(c, false) }

// BuildAutoUploadPlan godoc
// @Summary Build a plan scoped to the auto-upload target subject
// @Tags workflow
// @Accept json
// @Produce json
// @Param request body buildPlanRequestBody true "scope"
// @Success 200 {object} model.Plan
// @Router /api/plan/build_auto_upload_plan [post]
func (h *Handler) BuildAutoUploadPlan(c *gin.Context) { h.buildPlan(c, true) }

// GetPlan godoc
// @Summary Fetch a sealed plan by id
// @Tags workflow
// @Produce json
// @Param id path string true "plan id"
// @Success 200 {object} model.Plan
// @Router /api/plan/{id} [get]
func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.service.PlanByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, plan)
}

// ListPlans godoc
// @Summary List sealed plans
// @Tags workflow
// @Produce json
// @Success 200 {array} model.Plan
// @Router /api/plan [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, plans)
}

type applyDecisionPackBody struct {
	Decisions []model.DecisionEntry `json:"decisions" binding:"required"`
}

// ApplyDecisionPack godoc
// @Summary Fold a human Decision Pack into a new derived plan
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "plan id"
// @Param request body applyDecisionPackBody true "override entries"
// @Success 200 {object} model.Plan
// @Router /api/plan/{id}/decision_packs [post]
func (h *Handler) ApplyDecisionPack(c *gin.Context) {
	var body applyDecisionPackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	derived, pack, err := h.service.ApplyDecisionPack(c.Request.Context(), c.Param("id"), body.Decisions)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"plan": derived, "decision_pack": pack})
}

// Apply godoc
// @Summary Apply a plan: drive real uploads for its AUTO_UPLOAD items
// @Tags workflow
// @Accept json
// @Produce json
// @Param X-USE-REAL-UPLOADER header string true "must be \"1\""
// @Param request body model.ApplyRequest true "apply request"
// @Success 200 {object} model.ApplyResult
// @Router /api/plan/apply [post]
func (h *Handler) Apply(c *gin.Context) {
	var req model.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	devMode := h.service.DevMode()
	hasHeader := c.GetHeader("X-USE-REAL-UPLOADER") == "1"
	result, err := h.service.Apply(c.Request.Context(), req, devMode, hasHeader)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, result)
}

// ExportAuditSheet godoc
// @Summary Export a plan (optionally with a decision pack's overrides) as a .docx audit sheet
// @Tags workflow
// @Produce application/vnd.openxmlformats-officedocument.wordprocessingml.document
// @Param id path string true "plan id"
// @Param decision_pack_id query string false "decision pack id"
// @Success 200 {file} file
// @Router /api/plan/{id}/export [get]
func (h *Handler) ExportAuditSheet(c *gin.Context) {
	planID := c.Param("id")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-audit.docx", planID))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if err := h.service.ExportAuditSheet(c.Request.Context(), c.Writer, planID, c.Query("decision_pack_id")); err != nil {
		respondErr(c, err)
		return
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	plans := router.Group("/plan")
	{
		plans.POST("/build_readonly", h.BuildReadonlyPlan)
		plans.POST("/build_auto_upload_plan", h.BuildAutoUploadPlan)
		plans.GET("", h.ListPlans)
		plans.GET("/:id", h.GetPlan)
		plans.GET("/:id/export", h.ExportAuditSheet)
		plans.POST("/:id/decision_packs", h.ApplyDecisionPack)
		plans.POST("/apply", h.Apply)
	}
}
