package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/service"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
	"github.com/timegrid-hq/timegrid-api/pkg/response"
)

// SettingsHandler exposes the tenant attendance policy endpoints.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// Get godoc
// @Summary Get tenant attendance settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/attendance [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	policy, err := h.service.Get(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Update godoc
// @Summary Update tenant attendance settings
// @Description Partially update the policy; changes apply to the next punch
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /settings/attendance [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing tenant scope"))
		return
	}
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	policy, err := h.service.Update(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}
