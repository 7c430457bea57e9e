package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

// ErrCourseForbidden is returned when an instructor edits a course owned by someone else.
var ErrCourseForbidden = apperror.Authorization(apperror.CodePermissionDenied, "course belongs to another instructor")

// LessonService reads and reorders course lessons.
type LessonService interface {
	List(ctx context.Context, courseID uint) ([]dto.LessonResponse, error)
	Reorder(ctx context.Context, actor Actor, courseID uint, req dto.ReorderLessonsRequest) ([]dto.LessonResponse, error)
}

type lessonService struct {
	repo   repository.LessonRepository
	logger zerolog.Logger
}

// NewLessonService constructs the lesson service.
func NewLessonService(repo repository.LessonRepository, logger zerolog.Logger) LessonService {
	return &lessonService{
		repo:   repo,
		logger: logger.With().Str("component", "lesson_service").Logger(),
	}
}

func (s *lessonService) List(ctx context.Context, courseID uint) ([]dto.LessonResponse, error) {
	if _, err := s.course(ctx, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewLessonResponses(lessons), nil
}

func (s *lessonService) Reorder(ctx context.Context, actor Actor, courseID uint, req dto.ReorderLessonsRequest) ([]dto.LessonResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-edu-api/internal/service/lesson")
	ctx, span := tracer.Start(ctx, "lesson.reorder")
	span.SetAttributes(
		attribute.Int64("lesson.course_id", int64(courseID)),
		attribute.Int("lesson.count", len(req.LessonIDs)),
	)
	defer span.End()

	if len(req.LessonIDs) == 0 {
		return nil, ErrInvalidArgument.WithMessage("lesson_ids must not be empty")
	}
	seen := make(map[uint]struct{}, len(req.LessonIDs))
	for _, id := range req.LessonIDs {
		if _, dup := seen[id]; dup {
			return nil, ErrInvalidArgument.WithMessage("lesson_ids must not contain duplicates")
		}
		seen[id] = struct{}{}
	}

	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(actor, course) {
		span.SetStatus(codes.Error, "forbidden")
		return nil, ErrCourseForbidden
	}

	lessons, err := s.repo.Reorder(ctx, courseID, req.LessonIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reorder_failed")
		if errors.Is(err, repository.ErrLessonSetMismatch) {
			return nil, ErrInvalidArgument.WithMessage("lesson_ids must list every lesson of the course exactly once")
		}
		s.logger.Error().Err(err).Uint("course_id", courseID).Msg("lesson reorder rolled back")
		return nil, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("actor_id", actor.ID).Msg("lessons reordered")
	return dto.NewLessonResponses(lessons), nil
}

func (s *lessonService) course(ctx context.Context, id uint) (models.Course, error) {
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	return course, nil
}

func canEditCourse(actor Actor, course models.Course) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleInstructor:
		return course.InstructorID == actor.ID
	case models.RoleStudent:
		return false
	default:
		return false
	}
}
