// Package server assembles the HTTP surface of the dashboard API.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/handler"
	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	"github.com/noah-isme/teacher-dashboard-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/teacher-dashboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/teacher-dashboard-api/pkg/middleware/requestid"
)

// Handlers groups every endpoint handler mounted by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Profile   *handler.ProfileHandler
	Students  *handler.StudentHandler
	Dashboard *handler.DashboardHandler
	Metrics   *handler.MetricsHandler
}

// RouterConfig controls router construction.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
}

// NewRouter mounts the public and authenticated routes.
func NewRouter(cfg RouterConfig, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	secured.GET("/profile", h.Profile.Get)
	secured.PUT("/profile", h.Profile.Update)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/export", h.Students.Export)
	students.POST("/import", h.Students.Import)
	students.GET("/import/sample", h.Students.Sample)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.PATCH("/:id/status", h.Students.ToggleStatus)
	students.DELETE("/:id", h.Students.Delete)

	secured.GET("/dashboard", h.Dashboard.Summary)
	secured.GET("/usage", h.Dashboard.Usage)

	return r
}
