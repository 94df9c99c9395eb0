package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-admission-api/api/swagger"
	"github.com/noah-isme/sma-admission-api/internal/handler"
	"github.com/noah-isme/sma-admission-api/internal/middleware"
	"github.com/noah-isme/sma-admission-api/internal/notify"
	"github.com/noah-isme/sma-admission-api/internal/otp"
	"github.com/noah-isme/sma-admission-api/internal/repository"
	"github.com/noah-isme/sma-admission-api/internal/service"
	"github.com/noah-isme/sma-admission-api/internal/sheets"
	"github.com/noah-isme/sma-admission-api/internal/store"
	"github.com/noah-isme/sma-admission-api/pkg/cache"
	"github.com/noah-isme/sma-admission-api/pkg/config"
	"github.com/noah-isme/sma-admission-api/pkg/database"
	"github.com/noah-isme/sma-admission-api/pkg/export"
	"github.com/noah-isme/sma-admission-api/pkg/jobs"
	"github.com/noah-isme/sma-admission-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-admission-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-admission-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-admission-api/pkg/storage"
)

// @title SMA Admission API
// @version 0.1.0
// @description Student admission intake, OTP verification, edit windows, and review workflow
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var pendingStore store.PendingStore
	var grantStore store.GrantStore
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, using in-memory stores", "error", err)
		memPending := store.NewMemoryPendingStore()
		memPending.StartReaper(time.Minute)
		defer memPending.Close()
		memGrants := store.NewMemoryGrantStore()
		pendingStore = memPending
		grantStore = memGrants
	} else {
		defer redisClient.Close() //nolint:errcheck
		pendingStore = store.NewRedisPendingStore(redisClient, cfg.OTP.TTL)
		grantStore = store.NewRedisGrantStore(redisClient, cfg.Grants.TTL)
	}

	files, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	var mailer notify.Mailer
	var sms notify.SMSSender
	if cfg.Notify.Enabled {
		mailer = notify.NewSMTPMailer(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort, cfg.Notify.SMTPUser, cfg.Notify.SMTPPassword, cfg.Notify.From)
	} else {
		mailer = notify.NewLogMailer(logr)
	}
	sms = notify.NewLogSMS(logr)

	var register sheets.Register
	if cfg.Sheets.Enabled {
		csvRegister, err := sheets.NewCSVRegister(cfg.Sheets.Path)
		if err != nil {
			logr.Sugar().Fatalw("failed to open admission register", "error", err)
		}
		register = csvRegister
	}

	dispatcher := service.NewDispatcher(mailer, sms, register, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
	}, logr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	repo := repository.NewAdmissionRepository(db)
	codec := otp.New(cfg.OTP.Secret, cfg.OTP.Digits, cfg.OTP.MasterCode)
	locks := service.NewLocker()
	metricsSvc := service.NewMetricsService()

	artifacts := service.NewArtifactService(export.NewAdmissionPDF(), files, signer, repo, dispatcher, cfg.BaseURL, logr)
	finalizer := service.NewFinalizer(repo, artifacts, dispatcher, cfg.BaseURL, logr)
	pendingSvc := service.NewPendingService(pendingStore, codec, finalizer, dispatcher, locks, metricsSvc, cfg.OTP.TTL, cfg.OTP.MaxAttempts, logr)
	editSvc := service.NewEditWindowService(grantStore, repo, artifacts, dispatcher, locks, metricsSvc, cfg.Grants.TTL, cfg.BaseURL, logr)
	reviewSvc := service.NewReviewService(repo, artifacts, dispatcher, locks, cfg.BaseURL, cfg.Notify.AdminEmail, logr)

	admissionHandler := handler.NewAdmissionHandler(pendingSvc, files)
	reviewHandler := handler.NewReviewHandler(reviewSvc, editSvc)
	filesHandler := handler.NewFilesHandler(files, signer)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		admissions := api.Group("/admissions")
		admissions.POST("/init", admissionHandler.Init)
		admissions.POST("/verify", admissionHandler.Verify)
		admissions.GET("/:id/review", reviewHandler.ReviewData)
		admissions.POST("/:id/request-edit", reviewHandler.RequestEdit)
		admissions.GET("/:id/edit-data", reviewHandler.EditData)
		admissions.POST("/:id/apply-edit", reviewHandler.ApplyEdit)
		admissions.POST("/:id/submit-to-admin", reviewHandler.SubmitToAdmin)
		admissions.POST("/:id/approve", reviewHandler.Approve)

		api.GET("/files/:token", filesHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
