// Package handler exposes the Document Repository over REST, following the
// teacher's gin + swaggo annotation convention (modules/resumes/handler).
package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	httpPlatform "github.com/andreypavlenko/caesub/internal/platform/http"
	"github.com/andreypavlenko/caesub/modules/repository/model"
	"github.com/andreypavlenko/caesub/modules/repository/service"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch model.GetErrorCode(err) {
	case model.CodeTypeNotFound, model.CodeDocumentNotFound:
		return http.StatusNotFound
	case model.CodeTypeIDConflict:
		return http.StatusConflict
	case model.CodeInvalidMIME, model.CodeScopeMismatch, model.CodeSubjectKeysInvalid, model.CodeNameRequired, model.CodeTypeInUse:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	httpPlatform.RespondWithError(c, statusFor(err), string(model.GetErrorCode(err)), model.GetErrorMessage(err))
}

// ListTypes godoc
// @Summary List document types
// @Tags repository
// @Produce json
// @Param query query string false "substring filter over name/type_id/description"
// @Param period_kind query string false "none|month|quarter|year"
// @Param scope query string false "company|worker"
// @Param active query bool false "filter by active flag"
// @Param sort query string false "name|type_id|period_kind|relevance"
// @Param page query int false "page number (1-based)"
// @Param page_size query int false "page size"
// @Success 200 {array} model.DocumentTypeDTO
// @Router /api/repository/types [get]
func (h *Handler) ListTypes(c *gin.Context) {
	q := model.ListTypesQuery{
		Query:      c.Query("query"),
		PeriodKind: model.PeriodKind(c.Query("period_kind")),
		Scope:      model.Scope(c.Query("scope")),
		SortBy:     c.Query("sort"),
	}
	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err == nil {
			q.Active = &active
		}
	}
	if pageStr := c.Query("page"); pageStr != "" {
		q.Page, _ = strconv.Atoi(pageStr)
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		q.PageSize, _ = strconv.Atoi(pageSizeStr)
	}

	types, total, err := h.service.ListTypes(c.Request.Context(), q)
	if err != nil {
		respondErr(c, err)
		return
	}
	dtos := make([]*model.DocumentTypeDTO, len(types))
	for i, t := range types {
		dtos[i] = t.ToDTO()
	}
	if q.Page > 0 && q.PageSize > 0 {
		httpPlatform.RespondWithPagination(c, http.StatusOK, dtos, q.PageSize, (q.Page-1)*q.PageSize, total)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, dtos)
}

// CreateType godoc
// @Summary Create a document type
// @Tags repository
// @Accept json
// @Produce json
// @Param request body model.CreateTypeRequest true "type definition"
// @Success 201 {object} model.DocumentTypeDTO
// @Failure 409 {object} httpPlatform.ErrorResponse
// @Router /api/repository/types [post]
func (h *Handler) CreateType(c *gin.Context) {
	var req model.CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	t, err := h.service.CreateType(c.Request.Context(), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, t.ToDTO())
}

// GetType godoc
// @Summary Get a document type
// @Tags repository
// @Produce json
// @Param id path string true "type id"
// @Success 200 {object} model.DocumentTypeDTO
// @Failure 404 {object} httpPlatform.ErrorResponse
// @Router /api/repository/types/{id} [get]
func (h *Handler) GetType(c *gin.Context) {
	t, err := h.service.GetType(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, t.ToDTO())
}

// UpdateType godoc
// @Summary Update a document type
// @Tags repository
// @Accept json
// @Produce json
// @Param id path string true "type id"
// @Param request body model.UpdateTypeRequest true "partial update"
// @Success 200 {object} model.DocumentTypeDTO
// @Router /api/repository/types/{id} [put]
func (h *Handler) UpdateType(c *gin.Context) {
	var req model.UpdateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	t, err := h.service.UpdateType(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, t.ToDTO())
}

// DeleteType godoc
// @Summary Delete a document type
// @Tags repository
// @Param id path string true "type id"
// @Success 200 {object} map[string]string
// @Router /api/repository/types/{id} [delete]
func (h *Handler) DeleteType(c *gin.Context) {
	if err := h.service.DeleteType(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"message": "document type deleted"})
}

// ToggleActive godoc
// @Summary Toggle a document type's active flag
// @Tags repository
// @Param id path string true "type id"
// @Success 200 {object} model.DocumentTypeDTO
// @Router /api/repository/types/{id}/toggle_active [post]
func (h *Handler) ToggleActive(c *gin.Context) {
	t, err := h.service.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, t.ToDTO())
}

// DuplicateType godoc
// @Summary Duplicate a document type
// @Tags repository
// @Accept json
// @Produce json
// @Param id path string true "type id"
// @Param request body model.DuplicateTypeRequest false "optional new id"
// @Success 201 {object} model.DocumentTypeDTO
// @Router /api/repository/types/{id}/duplicate [post]
func (h *Handler) DuplicateType(c *gin.Context) {
	var req model.DuplicateTypeRequest
	_ = c.ShouldBindJSON(&req)
	t, err := h.service.DuplicateType(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, t.ToDTO())
}

// ExpectedPeriods godoc
// @Summary Expected period series for a type
// @Tags repository
// @Produce json
// @Param id path string true "type id"
// @Param months query int false "horizon in months (default 12)"
// @Success 200 {array} period.Period
// @Router /api/repository/types/{id}/expected [get]
func (h *Handler) ExpectedPeriods(c *gin.Context) {
	months := 12
	if m := c.Query("months"); m != "" {
		if parsed, err := strconv.Atoi(m); err == nil {
			months = parsed
		}
	}
	periods, err := h.service.ExpectedPeriods(c.Request.Context(), c.Param("id"), months)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, periods)
}

// ListDocuments godoc
// @Summary List document instances
// @Tags repository
// @Produce json
// @Success 200 {array} model.DocumentInstanceDTO
// @Router /api/repository/docs [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	q := model.ListDocumentsQuery{
		TypeID:         c.Query("type_id"),
		Scope:          model.Scope(c.Query("scope")),
		Status:         model.DocumentStatus(c.Query("status")),
		ValidityStatus: model.ValidityStatus(c.Query("validity_status")),
		PeriodKey:      c.Query("period_key"),
		CompanyKey:     c.Query("company_key"),
		PersonKey:      c.Query("person_key"),
	}
	docs, err := h.service.ListDocuments(c.Request.Context(), q)
	if err != nil {
		respondErr(c, err)
		return
	}
	now := time.Now().UTC()
	dtos := make([]*model.DocumentInstanceDTO, len(docs))
	for i, d := range docs {
		dtos[i] = d.ToDTO(now)
	}
	httpPlatform.RespondWithData(c, http.StatusOK, dtos)
}

// GetDocument godoc
// @Summary Get a document instance
// @Tags repository
// @Produce json
// @Param id path string true "doc id"
// @Success 200 {object} model.DocumentInstanceDTO
// @Router /api/repository/docs/{id} [get]
func (h *Handler) GetDocument(c *gin.Context) {
	d, err := h.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, d.ToDTO(time.Now().UTC()))
}

// DownloadPDF godoc
// @Summary Download a document's PDF blob
// @Tags repository
// @Produce application/pdf
// @Param id path string true "doc id"
// @Success 200 {file} binary
// @Router /api/repository/docs/{id}/pdf [get]
func (h *Handler) DownloadPDF(c *gin.Context) {
	data, err := h.service.DownloadPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

// Upload godoc
// @Summary Upload a document
// @Tags repository
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Param type_id formData string true "document type id"
// @Success 201 {object} model.DocumentInstanceDTO
// @Failure 400 {object} httpPlatform.ErrorResponse
// @Router /api/repository/docs/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "FILE_REQUIRED", "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "FILE_UNREADABLE", "could not open uploaded file")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "FILE_UNREADABLE", "could not read uploaded file")
		return
	}

	req := &model.UploadDocumentRequest{
		TypeID:     c.PostForm("type_id"),
		CompanyKey: c.PostForm("company_key"),
		PersonKey:  c.PostForm("person_key"),
		PeriodKey:  c.PostForm("period_key"),
		FileName:   fileHeader.Filename,
		Content:    content,
	}
	if issueDate := c.PostForm("issue_date"); issueDate != "" {
		if t, err := time.Parse("2006-01-02", issueDate); err == nil {
			req.IssueDate = &t
		}
	}
	if validityStart := c.PostForm("validity_start_date"); validityStart != "" {
		if t, err := time.Parse("2006-01-02", validityStart); err == nil {
			req.ValidityStartDate = &t
		}
	}

	doc, err := h.service.Upload(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, doc.ToDTO(time.Now().UTC()))
}

// UpdateDocument godoc
// @Summary Update a document instance
// @Tags repository
// @Accept json
// @Produce json
// @Param id path string true "doc id"
// @Param request body model.UpdateDocumentRequest true "partial update"
// @Success 200 {object} model.DocumentInstanceDTO
// @Router /api/repository/docs/{id} [put]
func (h *Handler) UpdateDocument(c *gin.Context) {
	var req model.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	d, err := h.service.UpdateDocument(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, d.ToDTO(time.Now().UTC()))
}

// ReplacePDF godoc
// @Summary Replace a document's PDF blob
// @Tags repository
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "doc id"
// @Param file formData file true "replacement PDF"
// @Success 200 {object} model.DocumentInstanceDTO
// @Router /api/repository/docs/{id}/pdf [put]
func (h *Handler) ReplacePDF(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "FILE_REQUIRED", "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "FILE_UNREADABLE", "could not open uploaded file")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "FILE_UNREADABLE", "could not read uploaded file")
		return
	}
	d, err := h.service.ReplacePDF(c.Request.Context(), c.Param("id"), content)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, d.ToDTO(time.Now().UTC()))
}

// DeleteDocument godoc
// @Summary Delete a document instance
// @Tags repository
// @Param id path string true "doc id"
// @Success 200 {object} map[string]string
// @Router /api/repository/docs/{id} [delete]
func (h *Handler) DeleteDocument(c *gin.Context) {
	if err := h.service.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"message": "document deleted"})
}

// SetOverride godoc
// @Summary Set or clear a document's validity override
// @Tags repository
// @Accept json
// @Produce json
// @Param id path string true "doc id"
// @Param request body model.SetOverrideRequest true "override, or clear=true"
// @Success 200 {object} model.DocumentInstanceDTO
// @Router /api/repository/docs/{id}/override [post]
func (h *Handler) SetOverride(c *gin.Context) {
	var req model.SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	d, err := h.service.SetOverride(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, d.ToDTO(time.Now().UTC()))
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	types := router.Group("/repository/types")
	{
		types.GET("", h.ListTypes)
		types.POST("", h.CreateType)
		types.GET("/:id", h.GetType)
		types.PUT("/:id", h.UpdateType)
		types.DELETE("/:id", h.DeleteType)
		types.POST("/:id/toggle_active", h.ToggleActive)
		types.POST("/:id/duplicate", h.DuplicateType)
		types.GET("/:id/expected", h.ExpectedPeriods)
	}

	docs := router.Group("/repository/docs")
	{
		docs.GET("", h.ListDocuments)
		docs.POST("/upload", h.Upload)
		docs.GET("/:id", h.GetDocument)
		docs.GET("/:id/pdf", h.DownloadPDF)
		docs.PUT("/:id", h.UpdateDocument)
		docs.PUT("/:id/pdf", h.ReplacePDF)
		docs.DELETE("/:id", h.DeleteDocument)
		docs.POST("/:id/override", h.SetOverride)
	}
}
