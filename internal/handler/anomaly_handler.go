package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timegrid-hq/timegrid-api/internal/middleware"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	"github.com/timegrid-hq/timegrid-api/internal/service"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
	"github.com/timegrid-hq/timegrid-api/pkg/response"
)

// AnomalyHandler exposes anomaly reporting, dashboard and export endpoints.
type AnomalyHandler struct {
	reports *service.AnomalyReportService
	exports *service.ExportService
}

// NewAnomalyHandler constructs an anomaly handler.
func NewAnomalyHandler(reports *service.AnomalyReportService, exports *service.ExportService) *AnomalyHandler {
	return &AnomalyHandler{reports: reports, exports: exports}
}

// List godoc
// @Summary List anomalies
// @Description List anomalous punches sorted by severity score
// @Tags Anomalies
// @Produce json
// @Param employeeId query string false "Filter by employee"
// @Param anomalyType query string false "Filter by kind"
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /anomalies [get]
func (h *AnomalyHandler) List(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	filter := anomalyFilter(c, tenantID)
	summaries, total, err := h.reports.GetAnomalies(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, paginationFor(filter.Page, filter.PageSize, total))
}

// Daily godoc
// @Summary Daily attendance report
// @Tags Anomalies
// @Produce json
// @Param date query string false "Report date, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /anomalies/daily [get]
func (h *AnomalyHandler) Daily(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
			return
		}
		date = parsed
	}
	report, err := h.reports.GetDailyReport(c.Request.Context(), tenantID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Rates godoc
// @Summary Presence and punctuality rates
// @Tags Anomalies
// @Produce json
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Success 200 {object} response.Envelope
// @Router /anomalies/rates [get]
func (h *AnomalyHandler) Rates(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	presence, err := h.reports.GetPresenceRate(c.Request.Context(), tenantID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	punctuality, err := h.reports.GetPunctualityRate(c.Request.Context(), tenantID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"presence_rate":    presence,
		"punctuality_rate": punctuality,
		"from":             from,
		"to":               to,
	}, nil)
}

// Trends godoc
// @Summary Anomaly trend series
// @Tags Anomalies
// @Produce json
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Success 200 {object} response.Envelope
// @Router /anomalies/trends [get]
func (h *AnomalyHandler) Trends(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	trends, err := h.reports.GetTrends(c.Request.Context(), tenantID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trends, nil)
}

// Recurring godoc
// @Summary Recurring anomaly patterns
// @Tags Anomalies
// @Produce json
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Success 200 {object} response.Envelope
// @Router /anomalies/recurring [get]
func (h *AnomalyHandler) Recurring(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	recurring, err := h.reports.DetectRecurringAnomalies(c.Request.Context(), tenantID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recurring, nil)
}

// Dashboard godoc
// @Summary Anomaly dashboard aggregate
// @Description Cached aggregate of counts, trends and top employees
// @Tags Anomalies
// @Produce json
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Success 200 {object} response.Envelope
// @Router /anomalies/dashboard [get]
func (h *AnomalyHandler) Dashboard(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	dashboard, cacheHit, err := h.reports.GetDashboard(c.Request.Context(), tenantID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
}

// Monthly godoc
// @Summary Monthly report
// @Tags Anomalies
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month 1-12"
// @Success 200 {object} response.Envelope
// @Router /anomalies/monthly [get]
func (h *AnomalyHandler) Monthly(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	now := time.Now().UTC()
	year := queryInt(c, "year", now.Year())
	month := queryInt(c, "month", int(now.Month()))
	if month < 1 || month > 12 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be 1-12"))
		return
	}
	report, cacheHit, err := h.reports.GetMonthlyReport(c.Request.Context(), tenantID, year, time.Month(month))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// HighRate godoc
// @Summary Employees with high anomaly rates
// @Tags Anomalies
// @Produce json
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Param threshold query number false "Minimum rate, default 0.3"
// @Success 200 {object} response.Envelope
// @Router /anomalies/high-rate [get]
func (h *AnomalyHandler) HighRate(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	threshold := 0.3
	if raw := c.Query("threshold"); raw != "" {
		parsed, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil || parsed < 0 || parsed > 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "threshold must be between 0 and 1"))
			return
		}
		threshold = parsed
	}
	employees, err := h.reports.GetHighAnomalyRateEmployees(c.Request.Context(), tenantID, from, to, threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, nil)
}

// Export godoc
// @Summary Export anomalies
// @Description Render the anomaly listing as CSV, JSON or PDF behind a signed URL
// @Tags Anomalies
// @Produce json
// @Param format query string true "csv, json or pdf"
// @Param dateFrom query string false "Range start"
// @Param dateTo query string false "Range end"
// @Success 200 {object} response.Envelope
// @Router /anomalies/export [get]
func (h *AnomalyHandler) Export(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	filter := anomalyFilter(c, tenantID)
	result, err := h.exports.ExportAnomalies(c.Request.Context(), tenantID, filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an exported file via signed token
// @Tags Anomalies
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /anomalies/export/download [get]
func (h *AnomalyHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	_, relPath, _, err := h.exports.ParseToken(token, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filepath.Base(relPath)))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), exportContentType(relPath), file, nil)
}

func exportContentType(relPath string) string {
	switch strings.ToLower(filepath.Ext(relPath)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func anomalyFilter(c *gin.Context, tenantID string) models.AttendanceFilter {
	filter := models.AttendanceFilter{
		TenantID:   tenantID,
		EmployeeID: c.Query("employeeId"),
		SiteID:     c.Query("siteId"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "pageSize", 50),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	}
	if raw := c.Query("anomalyType"); raw != "" {
		kind := models.AnomalyKind(raw)
		filter.AnomalyType = &kind
	}
	if raw := c.Query("dateFrom"); raw != "" {
		if parsed, err := parseDate(raw); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if raw := c.Query("dateTo"); raw != "" {
		if parsed, err := parseDate(raw); err == nil {
			end := parsed
			if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
				end = end.AddDate(0, 0, 1).Add(-time.Second)
			}
			filter.DateTo = &end
		}
	}
	return filter
}

func parseDate(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func dateRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if raw := c.Query("dateFrom"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid dateFrom")
		}
		from = parsed
	}
	if raw := c.Query("dateTo"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid dateTo")
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "dateTo before dateFrom")
	}
	return from, to, nil
}
