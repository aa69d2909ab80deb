package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/pkg/config"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
)

type usageAggregator interface {
	ModelUsage(ctx context.Context, rng models.MessageRange) ([]models.ModelTokenUsage, error)
	DailyUsage(ctx context.Context, rng models.MessageRange) ([]models.DailyTokenUsage, error)
}

// UsageServiceConfig carries the pricing table in USD per million tokens.
type UsageServiceConfig struct {
	CacheTTL     time.Duration
	DefaultDays  int
	Pricing      map[string]config.ModelPrice
	DefaultPrice config.ModelPrice
}

// UsageService reports token consumption and estimated spend.
type UsageService struct {
	messages usageAggregator
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      UsageServiceConfig
}

// NewUsageService constructs a UsageService.
func NewUsageService(messages usageAggregator, cache *CacheService, logger *zap.Logger, cfg UsageServiceConfig) *UsageService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageService{messages: messages, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Summary returns usage for the range and whether it was served from cache.
func (s *UsageService) Summary(ctx context.Context, userID, fromRaw, toRaw string) (*dto.UsageResponse, bool, error) {
	rng, err := ResolveDateRange(fromRaw, toRaw, s.cfg.DefaultDays, s.now())
	if err != nil {
		return nil, false, err
	}

	cacheKey := usageCachePrefix + userID + ":" + rng.Key()
	var cached dto.UsageResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	scope := rng.messageRange(userID)
	perModel, err := s.messages.ModelUsage(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate usage")
	}
	perDay, err := s.messages.DailyUsage(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily usage")
	}

	resp := &dto.UsageResponse{
		From:   rng.From.Format(models.DateLayout),
		To:     rng.To.Format(models.DateLayout),
		Models: make([]dto.ModelUsage, 0, len(perModel)),
		Daily:  make([]dto.DailyUsage, 0),
	}
	for _, m := range perModel {
		cost := s.Cost(m.Model, m.PromptTokens, m.CompletionTokens)
		resp.Models = append(resp.Models, dto.ModelUsage{
			Model:            m.Model,
			Requests:         m.Requests,
			PromptTokens:     m.PromptTokens,
			CompletionTokens: m.CompletionTokens,
			CostUSD:          roundUSD(cost),
		})
		resp.Totals.Requests += m.Requests
		resp.Totals.PromptTokens += m.PromptTokens
		resp.Totals.CompletionTokens += m.CompletionTokens
		resp.Totals.CostUSD += cost
	}
	resp.Totals.TotalTokens = resp.Totals.PromptTokens + resp.Totals.CompletionTokens
	resp.Totals.CostUSD = roundUSD(resp.Totals.CostUSD)

	daily := make(map[string]*dto.DailyUsage)
	for _, d := range perDay {
		key := d.Day.UTC().Format(models.DateLayout)
		entry, ok := daily[key]
		if !ok {
			entry = &dto.DailyUsage{Date: key}
			daily[key] = entry
		}
		entry.TotalTokens += d.PromptTokens + d.CompletionTokens
		entry.CostUSD += s.Cost(d.Model, d.PromptTokens, d.CompletionTokens)
	}
	for _, day := range rng.Days() {
		key := day.Format(models.DateLayout)
		point := dto.DailyUsage{Date: key}
		if entry, ok := daily[key]; ok {
			point = *entry
			point.CostUSD = roundUSD(point.CostUSD)
		}
		resp.Daily = append(resp.Daily, point)
	}

	if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("usage cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return resp, false, nil
}

// Cost prices token counts for a model, falling back to the default price.
func (s *UsageService) Cost(model string, promptTokens, completionTokens int64) float64 {
	price, ok := s.cfg.Pricing[model]
	if !ok {
		price = s.cfg.DefaultPrice
	}
	return float64(promptTokens)/1e6*price.Input + float64(completionTokens)/1e6*price.Output
}

func roundUSD(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
