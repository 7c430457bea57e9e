package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

// AdminStudentService orchestrates admin student management use cases.
type AdminStudentService interface {
	List(ctx context.Context, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error)
	Get(ctx context.Context, id uint) (dto.AdminStudentResponse, error)
	Create(ctx context.Context, payload dto.AdminStudentCreateRequest) (dto.AdminStudentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AdminStudentUpdateRequest) (dto.AdminStudentResponse, error)
	Delete(ctx context.Context, id uint) error
}

type adminStudentService struct {
	repo      repository.AdminStudentRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminStudentService constructs the admin student service.
func NewAdminStudentService(repo repository.AdminStudentRepository, validator *validator.Validate, logger zerolog.Logger) AdminStudentService {
	return &adminStudentService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "admin_student_service").Logger(),
	}
}

func (s *adminStudentService) List(ctx context.Context, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error) {
	sort := strings.ToLower(strings.TrimSpace(req.Sort))
	if sort != "" {
		if _, ok := repository.StudentSortColumns[sort]; !ok {
			return dto.AdminStudentListResponse{}, ErrInvalidArgument.WithMessage("unsupported sort option")
		}
	}

	filter := repository.AdminStudentFilter{
		Search:   strings.TrimSpace(req.Search),
		Class:    strings.TrimSpace(req.Class),
		Status:   strings.ToLower(strings.TrimSpace(req.Status)),
		Sort:     sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminStudentListResponse{}, err
	}

	responses := make([]dto.AdminStudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewAdminStudentResponse(student))
	}

	return dto.AdminStudentListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(maxInt(req.Page, 1), req.PageSize, total),
	}, nil
}

func (s *adminStudentService) Get(ctx context.Context, id uint) (dto.AdminStudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AdminStudentResponse{}, ErrStudentNotFound
		}
		return dto.AdminStudentResponse{}, err
	}

	return dto.NewAdminStudentResponse(student), nil
}

func (s *adminStudentService) Create(ctx context.Context, payload dto.AdminStudentCreateRequest) (dto.AdminStudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminStudentResponse{}, err
	}

	status := strings.ToLower(strings.TrimSpace(payload.Status))
	if status == "" {
		status = models.StudentStatusActive
	}
	student := models.Student{
		UserID: payload.UserID,
		Name:   strings.TrimSpace(payload.Name),
		Email:  normalizeEmail(payload.Email),
		Class:  strings.TrimSpace(payload.Class),
		Status: status,
		Notes:  strings.TrimSpace(payload.Notes),
	}
	if err := s.repo.Create(ctx, &student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AdminStudentResponse{}, ErrEmailTaken
		}
		return dto.AdminStudentResponse{}, err
	}

	s.logger.Info().Uint("student_id", student.ID).Msg("student created")
	return dto.NewAdminStudentResponse(student), nil
}

func (s *adminStudentService) Update(ctx context.Context, id uint, payload dto.AdminStudentUpdateRequest) (dto.AdminStudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminStudentResponse{}, err
	}

	updates := make(map[string]interface{})
	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(*payload.Name)
	}
	if payload.Email != nil {
		updates["email"] = normalizeEmail(*payload.Email)
	}
	if payload.Class != nil {
		updates["class"] = strings.TrimSpace(*payload.Class)
	}
	if payload.Status != nil {
		updates["status"] = strings.ToLower(strings.TrimSpace(*payload.Status))
	}
	if payload.Flagged != nil {
		updates["flagged"] = *payload.Flagged
	}
	if payload.Notes != nil {
		updates["notes"] = strings.TrimSpace(*payload.Notes)
	}

	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	student, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.AdminStudentResponse{}, ErrStudentNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return dto.AdminStudentResponse{}, ErrEmailTaken
		}
		return dto.AdminStudentResponse{}, err
	}

	return dto.NewAdminStudentResponse(student), nil
}

func (s *adminStudentService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	s.logger.Info().Uint("student_id", id).Msg("student archived")
	return nil
}
