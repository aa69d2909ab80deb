package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
	"github.com/noah-isme/teacher-dashboard-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, userID, fromRaw, toRaw string) (*dto.DashboardResponse, bool, error)
}

type usageService interface {
	Summary(ctx context.Context, userID, fromRaw, toRaw string) (*dto.UsageResponse, bool, error)
}

// DashboardHandler wires the analytics services to HTTP endpoints.
type DashboardHandler struct {
	dashboard dashboardService
	usage     usageService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboard dashboardService, usage usageService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, usage: usage}
}

// Summary godoc
// @Summary Roster and messaging summary
// @Tags Dashboard
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD). Defaults to 30 days ago"
// @Param to query string false "End date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.dashboard == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.dashboard.Summary(c.Request.Context(), userID, strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to")))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, summary, cacheHit, start)
}

// Usage godoc
// @Summary Token usage and cost per model
// @Tags Dashboard
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD). Defaults to 30 days ago"
// @Param to query string false "End date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /usage [get]
func (h *DashboardHandler) Usage(c *gin.Context) {
	if h.usage == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.usage.Summary(c.Request.Context(), userID, strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to")))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, summary, cacheHit, start)
}

func respondWithMeta(c *gin.Context, data interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
