package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	"github.com/timegrid-hq/timegrid-api/internal/service"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
	"github.com/timegrid-hq/timegrid-api/pkg/response"
)

// AttendanceHandler exposes punch ingestion and listing endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Create godoc
// @Summary Ingest a punch
// @Description Validate, classify and persist one punch event
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CreatePunchRequest true "Punch payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Create(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	var req dto.CreatePunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.CreatePunch(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Webhook godoc
// @Summary Device punch webhook
// @Description Ingest a punch pushed by a registered terminal
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.WebhookPunchRequest true "Device payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/webhook [post]
func (h *AttendanceHandler) Webhook(c *gin.Context) {
	var req dto.WebhookPunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.HandleWebhook(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List punches
// @Description List attendance records with filters
// @Tags Attendance
// @Produce json
// @Param employeeId query string false "Filter by employee"
// @Param type query string false "Filter by punch type"
// @Param anomalyType query string false "Filter by anomaly kind"
// @Param hasAnomaly query bool false "Only anomalous or clean records"
// @Param dateFrom query string false "Range start (RFC3339 or YYYY-MM-DD)"
// @Param dateTo query string false "Range end"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
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
	records, total, err := h.service.List(c.Request.Context(), tenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, paginationFor(query.Page, query.PageSize, total))
}

// Get godoc
// @Summary Get one punch
// @Tags Attendance
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	record, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a manual punch
// @Description Only manually created punches can be removed
// @Tags Attendance
// @Produce json
// @Param id path string true "Record id"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return value
}
