package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-rapor-api/api/swagger"
	"github.com/noah-isme/sma-rapor-api/internal/handler"
	"github.com/noah-isme/sma-rapor-api/internal/middleware"
	"github.com/noah-isme/sma-rapor-api/internal/repository"
	"github.com/noah-isme/sma-rapor-api/internal/service"
	"github.com/noah-isme/sma-rapor-api/pkg/cache"
	"github.com/noah-isme/sma-rapor-api/pkg/config"
	"github.com/noah-isme/sma-rapor-api/pkg/database"
	"github.com/noah-isme/sma-rapor-api/pkg/jobs"
	"github.com/noah-isme/sma-rapor-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-rapor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-rapor-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-rapor-api/pkg/storage"
)

// @title SMA Rapor API
// @version 0.1.0
// @description Grade lifecycle and report aggregation service
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	gradeRepo := repository.NewGradeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	submissionSvc := service.NewSubmissionService(gradeRepo, cacheRepo, metricsSvc, validate, logr)
	approvalSvc := service.NewApprovalService(gradeRepo, cacheRepo, metricsSvc, validate, logr)
	changeSvc := service.NewChangeRequestService(gradeRepo, cacheRepo, metricsSvc, validate, logr)
	reportSvc := service.NewReportService(gradeRepo, cacheRepo, metricsSvc, logr, cfg.Reports.CacheTTL)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Reports.ExportEnabled {
		files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportRepo := repository.NewExportRepository(db)
		exportSvc = service.NewExportService(exportRepo, reportSvc, files, signer, metricsSvc, logr, service.ExportServiceConfig{
			MaxRetries: cfg.Reports.WorkerRetries,
			CleanupTTL: cfg.Reports.SignedURLTTL,
			BasePath:   cfg.APIPrefix,
		})
		exportQueue = jobs.NewQueue("report-exports", exportSvc.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.SetQueue(exportQueue)
		exportQueue.Start(rootCtx)
		exportSvc.RecoverPendingJobs(rootCtx)
		exportSvc.StartCleanup(rootCtx, cfg.Reports.CleanupInterval)
	}

	gradeHandler := handler.NewGradeHandler(submissionSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	changeHandler := handler.NewChangeRequestHandler(changeSvc)
	reportHandler := handler.NewReportHandler(reportSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Metrics)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/grades", gradeHandler.Submit)
		api.GET("/grades", gradeHandler.List)
		api.GET("/submissions", gradeHandler.ListSubmissions)
		api.PATCH("/grades/status", approvalHandler.UpdateStatuses)
		api.POST("/grades/change-request", changeHandler.Stage)
		api.GET("/reports", reportHandler.GetReport)
		api.POST("/reports/export", reportHandler.CreateExport)
		api.GET("/reports/export/:id", reportHandler.ExportStatus)
		api.GET("/export/:token", reportHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
	cancel()
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
