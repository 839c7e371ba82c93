package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/service"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
	"github.com/timegrid-hq/timegrid-api/pkg/response"
)

// CorrectionHandler exposes punch correction and approval endpoints.
type CorrectionHandler struct {
	service *service.CorrectionService
}

// NewCorrectionHandler constructs a correction handler.
func NewCorrectionHandler(svc *service.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{service: svc}
}

// Correct godoc
// @Summary Correct a punch
// @Description Move a punch to a new timestamp and re-run classification
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Record id"
// @Param payload body dto.CorrectPunchRequest true "Correction payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/correct [put]
func (h *CorrectionHandler) Correct(c *gin.Context) {
	tenantID := tenantFromContext(c)
	claims := claimsFromContext(c)
	if tenantID == "" || claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	var req dto.CorrectPunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Correct(c.Request.Context(), tenantID, c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Resolve godoc
// @Summary Approve or reject a pending correction
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Record id"
// @Param payload body dto.ApproveCorrectionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/approval [post]
func (h *CorrectionHandler) Resolve(c *gin.Context) {
	tenantID := tenantFromContext(c)
	claims := claimsFromContext(c)
	if tenantID == "" || claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	var req dto.ApproveCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Resolve(c.Request.Context(), tenantID, c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Bulk godoc
// @Summary Correct several punches
// @Description Apply corrections record by record; failures do not abort the batch
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.BulkCorrectRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/corrections/bulk [post]
func (h *CorrectionHandler) Bulk(c *gin.Context) {
	tenantID := tenantFromContext(c)
	claims := claimsFromContext(c)
	if tenantID == "" || claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	var req dto.BulkCorrectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results := h.service.BulkCorrect(c.Request.Context(), tenantID, claims.UserID, req)
	response.JSON(c, http.StatusOK, results, nil)
}

// History godoc
// @Summary List corrected punches
// @Tags Corrections
// @Produce json
// @Param employeeId query string false "Filter by employee"
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance/corrections [get]
func (h *CorrectionHandler) History(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	var query dto.ListAttendanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	records, total, err := h.service.History(c.Request.Context(), tenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, paginationFor(query.Page, query.PageSize, total))
}
