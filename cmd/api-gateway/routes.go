package main

import (
	"github.com/gin-gonic/gin"

	"github.com/timegrid-hq/timegrid-api/internal/handler"
	"github.com/timegrid-hq/timegrid-api/internal/middleware"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	"github.com/timegrid-hq/timegrid-api/internal/repository"
	"github.com/timegrid-hq/timegrid-api/internal/service"
	"github.com/timegrid-hq/timegrid-api/pkg/config"
)

type routeHandlers struct {
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	attendance  *handler.AttendanceHandler
	corrections *handler.CorrectionHandler
	anomalies   *handler.AnomalyHandler
	settings    *handler.SettingsHandler
	metrics     *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, authSvc *service.AuthService, auditRepo *repository.UserRepository, h routeHandlers) {
	api := r.Group(cfg.APIPrefix)

	// Public surface: login, token refresh, device webhook and signed
	// export downloads carry their own authentication.
	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/refresh", h.auth.Refresh)
	api.POST("/auth/forgot-password", h.auth.ForgotPassword)
	api.POST("/auth/reset-password", h.auth.ResetPassword)
	api.POST("/attendance/webhook", h.attendance.Webhook)
	api.GET("/anomalies/export/download", h.anomalies.Download)

	protected := api.Group("", middleware.JWT(authSvc))

	auth := protected.Group("/auth")
	{
		auth.POST("/logout", h.auth.Logout)
		auth.POST("/change-password", h.auth.ChangePassword)
		auth.GET("/me", h.auth.Me)
	}

	managers := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager)
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	attendance := protected.Group("/attendance")
	{
		attendance.POST("", managers, h.attendance.Create)
		attendance.GET("", h.attendance.List)
		attendance.GET("/corrections", managers, h.corrections.History)
		attendance.POST("/corrections/bulk", managers, h.corrections.Bulk)
		attendance.GET("/:id", h.attendance.Get)
		attendance.DELETE("/:id", admins, h.attendance.Delete)
		attendance.PUT("/:id/correct", managers, middleware.Audit(auditRepo, "CORRECT", "attendance"), h.corrections.Correct)
		attendance.POST("/:id/approval", admins, middleware.Audit(auditRepo, "APPROVE", "attendance"), h.corrections.Resolve)
	}

	anomalies := protected.Group("/anomalies", managers)
	{
		anomalies.GET("", h.anomalies.List)
		anomalies.GET("/daily", h.anomalies.Daily)
		anomalies.GET("/rates", h.anomalies.Rates)
		anomalies.GET("/trends", h.anomalies.Trends)
		anomalies.GET("/recurring", h.anomalies.Recurring)
		anomalies.GET("/dashboard", h.anomalies.Dashboard)
		anomalies.GET("/monthly", h.anomalies.Monthly)
		anomalies.GET("/high-rate", h.anomalies.HighRate)
		anomalies.POST("/export", h.anomalies.Export)
	}

	settings := protected.Group("/settings", admins)
	{
		settings.GET("/attendance", h.settings.Get)
		settings.PUT("/attendance", middleware.Audit(auditRepo, "UPDATE", "settings"), h.settings.Update)
	}

	protected.GET("/system/metrics", admins, h.metrics.Summary)

	users := protected.Group("/users")
	{
		users.GET("", admins, h.users.List)
		users.POST("", admins, h.users.Create)
		users.GET("/:id", middleware.RBAC("SUPERADMIN", "ADMIN", "SELF"), h.users.Get)
		users.PUT("/:id", admins, h.users.Update)
		users.DELETE("/:id", admins, h.users.Delete)
	}
}
