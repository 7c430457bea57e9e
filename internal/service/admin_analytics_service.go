package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

const (
	defaultSummaryHours = 24
	maxSummaryHours     = 24 * 31
	summaryTopLimit     = 10
)

// AdminAnalyticsService aggregates the audit trail for the admin dashboard.
type AdminAnalyticsService interface {
	AuditSummary(ctx context.Context, hours int) (dto.AuditSummaryResponse, error)
}

type adminAnalyticsService struct {
	repo         repository.AdminAnalyticsRepository
	cache        *redis.Client
	cacheTTL     time.Duration
	storeTimeout time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAdminAnalyticsService constructs the analytics service. A nil cache disables caching.
func NewAdminAnalyticsService(repo repository.AdminAnalyticsRepository, cache *redis.Client, ttl, storeTimeout time.Duration, logger zerolog.Logger) AdminAnalyticsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &adminAnalyticsService{
		repo:         repo,
		cache:        cache,
		cacheTTL:     ttl,
		storeTimeout: storeTimeout,
		logger:       logger.With().Str("component", "admin_analytics_service").Logger(),
		now:          time.Now,
	}
}

func (s *adminAnalyticsService) AuditSummary(ctx context.Context, hours int) (dto.AuditSummaryResponse, error) {
	if hours == 0 {
		hours = defaultSummaryHours
	}
	if hours < 0 || hours > maxSummaryHours {
		return dto.AuditSummaryResponse{}, ErrInvalidArgument.WithMessage(fmt.Sprintf("hours must be between 1 and %d", maxSummaryHours))
	}

	cacheKey := fmt.Sprintf("analytics:audit:v1:%d", hours)
	tracer := otel.Tracer("github.com/noah-isme/gema-edu-api/internal/service/admin_analytics")
	ctx, span := tracer.Start(ctx, "analytics.audit_summary")
	span.SetAttributes(attribute.String("analytics.cache_key", cacheKey))
	defer span.End()

	if cached, ok := s.readCache(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
		return cached, nil
	}

	summary, err := s.aggregate(ctx, hours)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate_failed")
		return dto.AuditSummaryResponse{}, err
	}
	span.SetAttributes(
		attribute.Int64("analytics.total_events", summary.TotalEvents),
		attribute.Int64("analytics.failed_logins", summary.Logins.Failed),
	)

	s.writeCache(ctx, cacheKey, summary)
	return summary, nil
}

func (s *adminAnalyticsService) aggregate(ctx context.Context, hours int) (dto.AuditSummaryResponse, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	now := s.now().UTC()
	since := now.Add(-time.Duration(hours) * time.Hour)

	total, err := s.repo.CountActivitySince(ctx, since)
	if err != nil {
		return dto.AuditSummaryResponse{}, storeError(ctx, err)
	}
	active, err := s.repo.CountActiveUsersSince(ctx, since)
	if err != nil {
		return dto.AuditSummaryResponse{}, storeError(ctx, err)
	}
	actions, err := s.repo.TopActionsSince(ctx, since, summaryTopLimit)
	if err != nil {
		return dto.AuditSummaryResponse{}, storeError(ctx, err)
	}
	succeeded, err := s.repo.CountLoginAttemptsSince(ctx, since, true)
	if err != nil {
		return dto.AuditSummaryResponse{}, storeError(ctx, err)
	}
	failed, err := s.repo.CountLoginAttemptsSince(ctx, since, false)
	if err != nil {
		return dto.AuditSummaryResponse{}, storeError(ctx, err)
	}
	sources, err := s.repo.TopFailureSourcesSince(ctx, since, summaryTopLimit)
	if err != nil {
		return dto.AuditSummaryResponse{}, storeError(ctx, err)
	}

	summary := dto.AuditSummaryResponse{
		WindowHours:       hours,
		TotalEvents:       total,
		ActiveUsers:       active,
		TopActions:        make([]dto.ActionCountResponse, 0, len(actions)),
		Logins:            dto.LoginSummary{Succeeded: succeeded, Failed: failed},
		TopFailureSources: make([]dto.FailureSourceResponse, 0, len(sources)),
		GeneratedAt:       now,
	}
	for _, row := range actions {
		summary.TopActions = append(summary.TopActions, dto.ActionCountResponse{Action: row.Action, Count: row.Count})
	}
	for _, row := range sources {
		summary.TopFailureSources = append(summary.TopFailureSources, dto.FailureSourceResponse{IPAddress: row.IPAddress, Failures: row.Failures})
	}
	return summary, nil
}

func (s *adminAnalyticsService) readCache(ctx context.Context, key string) (dto.AuditSummaryResponse, bool) {
	if s.cache == nil {
		return dto.AuditSummaryResponse{}, false
	}
	cached, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
		}
		return dto.AuditSummaryResponse{}, false
	}

	var response dto.AuditSummaryResponse
	if err := json.Unmarshal(cached, &response); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed analytics cache entry")
		return dto.AuditSummaryResponse{}, false
	}
	response.CacheHit = true
	return response, true
}

func (s *adminAnalyticsService) writeCache(ctx context.Context, key string, summary dto.AuditSummaryResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store analytics cache")
	}
}
