package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
)

type rosterCounter interface {
	Counts(ctx context.Context, userID string) (models.StudentCounts, error)
}

type messageAggregator interface {
	Totals(ctx context.Context, rng models.MessageRange) (models.MessageTotals, error)
	DailyCounts(ctx context.Context, rng models.MessageRange) ([]models.DailyMessageCount, error)
	TopStudents(ctx context.Context, rng models.MessageRange, limit int) ([]models.StudentMessageCount, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	DefaultDays int
	TopStudents int
}

// DashboardService composes the message analytics overview.
type DashboardService struct {
	students rosterCounter
	messages messageAggregator
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students rosterCounter
	Messages messageAggregator
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 30
	}
	if cfg.TopStudents <= 0 {
		cfg.TopStudents = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students: params.Students,
		messages: params.Messages,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Summary returns the dashboard for the range and whether it was served from cache.
func (s *DashboardService) Summary(ctx context.Context, userID, fromRaw, toRaw string) (*dto.DashboardResponse, bool, error) {
	rng, err := ResolveDateRange(fromRaw, toRaw, s.cfg.DefaultDays, s.now())
	if err != nil {
		return nil, false, err
	}

	cacheKey := dashboardCachePrefix + userID + ":" + rng.Key()
	var cached dto.DashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	summary, err := s.build(ctx, userID, rng)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return summary, false, nil
}

func (s *DashboardService) build(ctx context.Context, userID string, rng DateRange) (*dto.DashboardResponse, error) {
	scope := rng.messageRange(userID)

	counts, err := s.students.Counts(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	totals, err := s.messages.Totals(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate messages")
	}
	daily, err := s.messages.DailyCounts(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily messages")
	}
	top, err := s.messages.TopStudents(ctx, scope, s.cfg.TopStudents)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank students")
	}

	byDay := make(map[string]int, len(daily))
	for _, d := range daily {
		byDay[d.Day.UTC().Format(models.DateLayout)] += d.Count
	}
	series := make([]dto.DailyMessagePoint, 0, len(byDay))
	for _, day := range rng.Days() {
		key := day.Format(models.DateLayout)
		series = append(series, dto.DailyMessagePoint{Date: key, Count: byDay[key]})
	}

	ranked := make([]dto.TopStudent, 0, len(top))
	for _, t := range top {
		ranked = append(ranked, dto.TopStudent{
			StudentID: t.StudentID,
			Name:      strings.TrimSpace(t.FirstName + " " + t.LastName),
			Messages:  t.Count,
		})
	}

	return &dto.DashboardResponse{
		From: rng.From.Format(models.DateLayout),
		To:   rng.To.Format(models.DateLayout),
		Students: dto.DashboardStudents{
			Total:   counts.Total,
			Active:  counts.Active,
			Engaged: totals.ActiveStudents,
		},
		Messages: dto.DashboardMessages{
			Total:    totals.Total,
			Inbound:  totals.Inbound,
			Outbound: totals.Outbound,
		},
		DailyMessages: series,
		TopStudents:   ranked,
	}, nil
}
