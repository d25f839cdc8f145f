package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/campus-labs/attendance-api/internal/handler"
	"github.com/campus-labs/attendance-api/internal/middleware"
	"github.com/campus-labs/attendance-api/internal/notifier"
	"github.com/campus-labs/attendance-api/internal/recognizer"
	"github.com/campus-labs/attendance-api/internal/repository"
	"github.com/campus-labs/attendance-api/internal/service"
	"github.com/campus-labs/attendance-api/pkg/cache"
	"github.com/campus-labs/attendance-api/pkg/config"
	"github.com/campus-labs/attendance-api/pkg/database"
	"github.com/campus-labs/attendance-api/pkg/jobs"
	"github.com/campus-labs/attendance-api/pkg/logger"
	corsmiddleware "github.com/campus-labs/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-labs/attendance-api/pkg/middleware/requestid"
	"github.com/campus-labs/attendance-api/pkg/storage"
)

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
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	rosterRepo := repository.NewRosterRepository(db)

	metrics := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, staffRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
		EmailDomain: cfg.JWT.EmailDomain,
	})
	rosterService := service.NewRosterService(rosterRepo, logr)
	sessionService := service.NewSessionService(sessionRepo, logr)
	courseService := service.NewCourseService(courseRepo, studentRepo, enrollmentRepo, logr)
	reportService := service.NewReportService(sessionRepo, enrollmentRepo, redisClient, cfg.Reports.CacheTTL, logr)

	var resolver service.IdentityResolver
	if cfg.Recognition.Enabled {
		resolver = recognizer.NewHTTPResolver(cfg.Recognition)
	}
	presenceService := service.NewPresenceService(enrollmentRepo, resolver, metrics, logr)

	var target notifier.Notifier = notifier.NewLogNotifier(logr)
	if cfg.Notifications.Enabled && cfg.Notifications.WebhookURL != "" {
		target = notifier.NewWebhookNotifier(cfg.Notifications.WebhookURL)
	}
	notifyService := service.NewNotifyService(enrollmentRepo, sessionRepo, target, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	archive, err := storage.NewUploadArchive(cfg.Storage.ArchiveDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload archive", "error", err)
	}
	if removed, err := archive.CleanupOlderThan(cfg.Storage.ArchiveTTL); err != nil {
		logr.Sugar().Warnw("upload archive cleanup failed", "error", err)
	} else if len(removed) > 0 {
		logr.Sugar().Infow("upload archive cleaned", "removed", len(removed))
	}
	linkSigner := storage.NewReportLinkSigner(cfg.JWT.Secret, cfg.Reports.LinkTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifyService.Start(ctx)
	defer notifyService.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, authService, handler.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Uploads:  handler.NewUploadHandler(rosterService, archive, metrics, logr),
		Courses:  handler.NewCourseHandler(courseService),
		Sessions: handler.NewSessionHandler(sessionService, presenceService, notifyService, reportService, metrics, linkSigner),
		Metrics:  handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
