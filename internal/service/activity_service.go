package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/observability"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

const (
	defaultActivityPageSize = 25
	maxActivityPageSize     = 200
)

// ActivityEntry captures one observed action before it is persisted.
type ActivityEntry struct {
	UserID       *uint
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Details      map[string]interface{}
	CreatedAt    time.Time
}

// ActivityRecorder accepts audit entries without blocking the caller.
type ActivityRecorder interface {
	Record(entry ActivityEntry) bool
}

// ActivityQueue is the bounded hand-off between request goroutines and dispatcher workers.
type ActivityQueue struct {
	entries chan ActivityEntry
	logger  zerolog.Logger
}

// NewActivityQueue constructs a queue holding at most size pending entries.
func NewActivityQueue(size int, logger zerolog.Logger) *ActivityQueue {
	if size <= 0 {
		size = 1024
	}
	return &ActivityQueue{
		entries: make(chan ActivityEntry, size),
		logger:  logger.With().Str("component", "activity_queue").Logger(),
	}
}

// Record enqueues entry. A full queue drops it and returns false.
func (q *ActivityQueue) Record(entry ActivityEntry) bool {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	select {
	case q.entries <- entry:
		return true
	default:
		observability.ActivityDropped().Inc()
		q.logger.Warn().Str("action", entry.Action).Msg("activity queue full, entry dropped")
		return false
	}
}

// Pending reports the number of queued entries.
func (q *ActivityQueue) Pending() int {
	return len(q.entries)
}

// ActivityService exposes audit trail reads and retention.
type ActivityService interface {
	System(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	ForUser(ctx context.Context, userID uint, page dto.ActivityPageRequest) (dto.ActivityListResponse, error)
	ByAction(ctx context.Context, action string, page dto.ActivityPageRequest) (dto.ActivityListResponse, error)
	ByDateRange(ctx context.Context, start, end time.Time, page dto.ActivityPageRequest) (dto.ActivityListResponse, error)
	ByResource(ctx context.Context, resourceType, resourceID string, page dto.ActivityPageRequest) (dto.ActivityListResponse, error)
	Cleanup(ctx context.Context, daysToKeep int) (dto.ActivityCleanupResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	now    func() time.Time
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) System(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		UserID:       req.UserID,
		Action:       strings.TrimSpace(req.Action),
		ResourceType: strings.TrimSpace(req.ResourceType),
		ResourceID:   strings.TrimSpace(req.ResourceID),
		Start:        req.Start,
		End:          req.End,
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return dto.ActivityListResponse{}, ErrInvalidArgument.WithMessage("end must not be before start")
	}
	return s.list(ctx, filter, req.ActivityPageRequest)
}

func (s *activityService) ForUser(ctx context.Context, userID uint, page dto.ActivityPageRequest) (dto.ActivityListResponse, error) {
	if userID == 0 {
		return dto.ActivityListResponse{}, ErrInvalidArgument.WithMessage("user id is required")
	}
	return s.list(ctx, repository.ActivityLogFilter{UserID: &userID}, page)
}

func (s *activityService) ByAction(ctx context.Context, action string, page dto.ActivityPageRequest) (dto.ActivityListResponse, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return dto.ActivityListResponse{}, ErrInvalidArgument.WithMessage("action is required")
	}
	return s.list(ctx, repository.ActivityLogFilter{Action: action}, page)
}

func (s *activityService) ByDateRange(ctx context.Context, start, end time.Time, page dto.ActivityPageRequest) (dto.ActivityListResponse, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return dto.ActivityListResponse{}, ErrInvalidArgument.WithMessage("a valid start and end are required")
	}
	start, end = start.UTC(), end.UTC()
	return s.list(ctx, repository.ActivityLogFilter{Start: &start, End: &end}, page)
}

func (s *activityService) ByResource(ctx context.Context, resourceType, resourceID string, page dto.ActivityPageRequest) (dto.ActivityListResponse, error) {
	resourceType = strings.TrimSpace(resourceType)
	if resourceType == "" {
		return dto.ActivityListResponse{}, ErrInvalidArgument.WithMessage("resource type is required")
	}
	return s.list(ctx, repository.ActivityLogFilter{ResourceType: resourceType, ResourceID: strings.TrimSpace(resourceID)}, page)
}

func (s *activityService) Cleanup(ctx context.Context, daysToKeep int) (dto.ActivityCleanupResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-edu-api/internal/service/activity")
	ctx, span := tracer.Start(ctx, "activity.cleanup")
	span.SetAttributes(attribute.Int("activity.days_to_keep", daysToKeep))
	defer span.End()

	if daysToKeep < 1 {
		span.SetStatus(codes.Error, "invalid_days")
		return dto.ActivityCleanupResponse{}, ErrInvalidArgument.WithMessage("days_to_keep must be at least 1")
	}

	cutoff := s.now().UTC().AddDate(0, 0, -daysToKeep)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete_failed")
		return dto.ActivityCleanupResponse{}, err
	}

	span.SetAttributes(attribute.Int64("activity.deleted", deleted))
	s.logger.Info().Int("days_to_keep", daysToKeep).Int64("deleted", deleted).Time("cutoff", cutoff).Msg("activity logs purged")
	return dto.ActivityCleanupResponse{DaysToKeep: daysToKeep, Cutoff: cutoff, Deleted: deleted}, nil
}

func (s *activityService) list(ctx context.Context, filter repository.ActivityLogFilter, page dto.ActivityPageRequest) (dto.ActivityListResponse, error) {
	if err := applyActivityPage(&filter, page); err != nil {
		return dto.ActivityListResponse{}, err
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityLogResponse(entry))
	}
	return dto.ActivityListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func applyActivityPage(filter *repository.ActivityLogFilter, page dto.ActivityPageRequest) error {
	filter.Page = maxInt(page.Page, 1)
	switch {
	case page.PageSize <= 0:
		filter.PageSize = defaultActivityPageSize
	case page.PageSize > maxActivityPageSize:
		filter.PageSize = maxActivityPageSize
	default:
		filter.PageSize = page.PageSize
	}

	sortField := strings.ToLower(strings.TrimSpace(page.Sort))
	if sortField == "" {
		sortField = "created_at"
	}
	if _, ok := repository.ActivitySortColumns[sortField]; !ok {
		return ErrInvalidArgument.WithMessage("unsupported sort field")
	}
	filter.SortField = sortField

	switch strings.ToLower(strings.TrimSpace(page.Order)) {
	case "", "desc":
		filter.SortAsc = false
	case "asc":
		filter.SortAsc = true
	default:
		return ErrInvalidArgument.WithMessage("order must be asc or desc")
	}
	return nil
}
