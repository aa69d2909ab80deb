package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/teacher-dashboard-api/api/swagger"
	"github.com/noah-isme/teacher-dashboard-api/internal/handler"
	"github.com/noah-isme/teacher-dashboard-api/internal/repository"
	"github.com/noah-isme/teacher-dashboard-api/internal/server"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	"github.com/noah-isme/teacher-dashboard-api/pkg/cache"
	"github.com/noah-isme/teacher-dashboard-api/pkg/config"
	"github.com/noah-isme/teacher-dashboard-api/pkg/database"
	"github.com/noah-isme/teacher-dashboard-api/pkg/jobs"
	"github.com/noah-isme/teacher-dashboard-api/pkg/logger"
	"github.com/noah-isme/teacher-dashboard-api/pkg/roster"
)

// @title Teacher Dashboard API
// @version 1.0.0
// @description Student roster, messaging analytics and token usage for teachers.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgres(startCtx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(startCtx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Redis.Enabled && redisClient != nil)

	users := repository.NewUserRepository(db)
	students := repository.NewStudentRepository(db)
	messages := repository.NewMessageRepository(db)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	profileSvc := service.NewProfileService(users, validate, logr)
	auditQueue := service.NewAuditQueue(users, jobs.QueueConfig{Workers: 2, BufferSize: 64, MaxRetries: 3, Logger: logr})
	auditQueue.Start(context.Background())
	defer auditQueue.Stop()

	studentSvc := service.NewStudentService(students, roster.NewTranscoder(), auditQueue, cacheSvc, metrics, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students: students,
		Messages: messages,
		Cache:    cacheSvc,
		Logger:   logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:    cfg.Dashboard.CacheTTL,
			DefaultDays: cfg.Dashboard.DefaultDays,
			TopStudents: cfg.Dashboard.TopStudents,
		},
	})
	usageSvc := service.NewUsageService(messages, cacheSvc, logr, service.UsageServiceConfig{
		CacheTTL:     cfg.Usage.CacheTTL,
		DefaultDays:  cfg.Dashboard.DefaultDays,
		Pricing:      cfg.Usage.Pricing,
		DefaultPrice: cfg.Usage.DefaultPrice,
	})

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["cache"] = handler.PingFunc(cacheRepo.Ping)
	}

	router := server.NewRouter(server.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
	}, server.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Profile:   handler.NewProfileHandler(profileSvc),
		Students:  handler.NewStudentHandler(studentSvc, cfg.Import.MaxFileSizeBytes),
		Dashboard: handler.NewDashboardHandler(dashboardSvc, usageSvc),
		Metrics:   handler.NewMetricsHandler(metrics, checks),
	}, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		serverErrors <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-signals:
		logr.Info("shutdown requested", zap.String("signal", sig.String()))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
