package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/timegrid-hq/timegrid-api/internal/middleware"
	"github.com/timegrid-hq/timegrid-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantFromContext returns the tenant scope of the authenticated user.
// Superadmins carry no tenant of their own and may select one via the
// X-Tenant-ID header.
func tenantFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.TenantID != "" {
		return claims.TenantID
	}
	if claims.Role == models.RoleSuperAdmin {
		return c.GetHeader("X-Tenant-ID")
	}
	return ""
}
