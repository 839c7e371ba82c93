package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/timegrid-hq/timegrid-api/api/swagger"
	"github.com/timegrid-hq/timegrid-api/internal/handler"
	appjobs "github.com/timegrid-hq/timegrid-api/internal/jobs"
	"github.com/timegrid-hq/timegrid-api/internal/middleware"
	"github.com/timegrid-hq/timegrid-api/internal/repository"
	"github.com/timegrid-hq/timegrid-api/internal/service"
	"github.com/timegrid-hq/timegrid-api/pkg/cache"
	"github.com/timegrid-hq/timegrid-api/pkg/config"
	"github.com/timegrid-hq/timegrid-api/pkg/database"
	"github.com/timegrid-hq/timegrid-api/pkg/export"
	"github.com/timegrid-hq/timegrid-api/pkg/jobs"
	"github.com/timegrid-hq/timegrid-api/pkg/logger"
	corsmiddleware "github.com/timegrid-hq/timegrid-api/pkg/middleware/cors"
	reqidmiddleware "github.com/timegrid-hq/timegrid-api/pkg/middleware/requestid"
	"github.com/timegrid-hq/timegrid-api/pkg/storage"
)

// @title TimeGrid API
// @version 1.0.0
// @description Workforce attendance reconciliation and anomaly detection engine
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	// Repositories.
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	attendanceRepo := repository.NewAttendanceRepository(db)
	reportRepo := repository.NewAnomalyReportRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	overtimeRepo := repository.NewOvertimeRepository(db)
	notificationLogRepo := repository.NewNotificationLogRepository(db)
	templateRepo := repository.NewEmailTemplateRepository(db)
	attemptRepo := repository.NewPunchAttemptRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Engine services.
	metricsSvc := service.NewMetricsService()
	resolver := service.NewScheduleResolver(scheduleRepo, employeeRepo, logr)
	sessions := service.NewSessionReconstructor(attendanceRepo, logr)
	classifier := service.NewAnomalyClassifier(attendanceRepo, leaveRepo, holidayRepo, policyRepo, resolver, sessions, logr)
	metricsCalc := service.NewMetricsCalculator(employeeRepo, holidayRepo, policyRepo, resolver, sessions, logr)

	queueCfg := jobs.QueueConfig{
		Workers:    cfg.Jobs.WorkerConcurrency,
		BufferSize: cfg.Jobs.QueueSize,
		MaxRetries: cfg.Jobs.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	}
	mailer := appjobs.NewLogMailer(logr)
	notifier := appjobs.NewNotifier(employeeRepo, mailer, queueCfg, logr)

	attendanceSvc := service.NewAttendanceService(
		attendanceRepo, attemptRepo, deviceRepo, employeeRepo,
		leaveRepo, holidayRepo,
		classifier, metricsCalc, notifier, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, 5*time.Minute, logr, true)
	correctionSvc := service.NewCorrectionService(attendanceRepo, classifier, metricsCalc, notifier, cacheSvc, logr)
	reportSvc := service.NewAnomalyReportService(reportRepo, cacheSvc, logr)
	settingsSvc := service.NewSettingsService(policyRepo, nil, logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "timegrid-api",
	})
	userSvc := service.NewUserService(userRepo, nil, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(reportSvc, exportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	// Background sweeps.
	sweeper := appjobs.NewSweeper(tenantRepo, scheduleRepo, employeeRepo, leaveRepo,
		policyRepo, attendanceRepo, notificationLogRepo, templateRepo, mailer, logr)
	scheduler := appjobs.NewScheduler(queueCfg, logr)
	if cfg.Notifications.Enabled {
		scheduler.Register(appjobs.NewLateNotificationJob(sweeper), cfg.Jobs.NotificationSweepInterval)
		scheduler.Register(appjobs.NewAbsenceNotificationJob(sweeper), cfg.Jobs.NotificationSweepInterval)
		scheduler.Register(appjobs.NewAbsencePartialNotificationJob(sweeper), cfg.Jobs.NotificationSweepInterval)
		scheduler.Register(appjobs.NewAbsenceTechnicalNotificationJob(sweeper, scheduleRepo), cfg.Jobs.NotificationSweepInterval)
		scheduler.Register(appjobs.NewMissingInNotificationJob(sweeper), cfg.Jobs.NotificationSweepInterval)
		scheduler.Register(appjobs.NewMissingOutNotificationJob(sweeper), cfg.Jobs.NotificationSweepInterval)
		scheduler.Register(appjobs.NewOvertimePendingNotificationJob(sweeper, overtimeRepo), cfg.Jobs.NotificationSweepInterval)
	}
	scheduler.Register(appjobs.NewDetectMissingOutJob(sweeper, attendanceRepo), cfg.Jobs.DetectionSweepInterval)
	scheduler.Register(appjobs.NewDetectOvertimeJob(sweeper, overtimeRepo, attendanceRepo, holidayRepo), cfg.Jobs.DetectionSweepInterval)
	scheduler.Register(appjobs.NewExportCleanupJob(exportSvc, cfg.Exports.SignedURLTTL, logr), cfg.Exports.CleanupInterval)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(runCtx)
	defer notifier.Stop()
	if cfg.Jobs.Enabled {
		scheduler.Start(runCtx)
		defer scheduler.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	correctionHandler := handler.NewCorrectionHandler(correctionSvc)
	anomalyHandler := handler.NewAnomalyHandler(reportSvc, exportSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		start := time.Now()
		err := db.PingContext(c.Request.Context())
		metricsSvc.ObserveDBQuery("ping", time.Since(start))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, userRepo, routeHandlers{
		auth:        authHandler,
		users:       userHandler,
		attendance:  attendanceHandler,
		corrections: correctionHandler,
		anomalies:   anomalyHandler,
		settings:    settingsHandler,
		metrics:     metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-runCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
