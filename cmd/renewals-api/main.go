package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/dojoworks/renewals-api/api/swagger"
	"github.com/dojoworks/renewals-api/internal/handler"
	"github.com/dojoworks/renewals-api/internal/middleware"
	"github.com/dojoworks/renewals-api/internal/repository"
	"github.com/dojoworks/renewals-api/internal/service"
	"github.com/dojoworks/renewals-api/pkg/cache"
	"github.com/dojoworks/renewals-api/pkg/config"
	"github.com/dojoworks/renewals-api/pkg/database"
	"github.com/dojoworks/renewals-api/pkg/export"
	"github.com/dojoworks/renewals-api/pkg/jobs"
	"github.com/dojoworks/renewals-api/pkg/logger"
	corsmiddleware "github.com/dojoworks/renewals-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dojoworks/renewals-api/pkg/middleware/requestid"
	"github.com/dojoworks/renewals-api/pkg/storage"
)

// @title Dojoworks Renewals API
// @version 0.1.0
// @description Membership renewal lifecycle and expiration tracking
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logr, err := logger.New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Snapshot cache is optional; the repository degrades to a no-op
		// when the client is nil.
		logr.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		redisClient = nil
	}

	renewalRepo := repository.NewRenewalRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})
	renewalSvc := service.NewRenewalService(renewalRepo, cacheRepo, nil, cfg.Renewals, logr).
		WithMetrics(metricsSvc)

	renewalHandler := handler.NewRenewalHandler(renewalSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	renewals := protected.Group("/renewals")
	{
		renewals.GET("", renewalHandler.List)
		renewals.POST("", renewalHandler.Create)
		renewals.GET("/summary", renewalHandler.Summary)
		renewals.GET("/expiring", renewalHandler.Expiring)
		renewals.GET("/expiring/grouped", renewalHandler.ExpiringGrouped)
		renewals.GET("/:id", renewalHandler.Get)
		renewals.PATCH("/:id", renewalHandler.Update)
		renewals.DELETE("/:id", renewalHandler.Delete)
		renewals.POST("/:id/quit", renewalHandler.Quit)
		renewals.POST("/:id/renew", renewalHandler.Renew)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportRepository(db)

		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init report storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		classifier := service.NewClassifier(cfg.Renewals.GracePeriodDays, cfg.Renewals.WarningPeriodDays)

		exportSvc := service.NewExportService(renewalRepo, store, signer, classifier, service.ExportConfig{
			APIPrefix:         cfg.APIPrefix,
			ResultTTL:         cfg.Reports.SignedURLTTL,
			DefaultWindowDays: cfg.Renewals.DefaultWindowDays,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc := service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler := handler.NewReportHandler(reportSvc)
		protected.POST("/renewals/reports", reportHandler.GenerateReport)
		protected.GET("/renewals/reports/:id", reportHandler.ReportStatus)
		// Download is token-authenticated, no JWT required.
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("starting renewals api", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}
