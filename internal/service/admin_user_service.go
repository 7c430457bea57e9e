package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

// ErrSelfLockout prevents administrators from removing their own access.
var ErrSelfLockout = ErrInvalidArgument.WithMessage("administrators cannot demote or deactivate themselves")

// AdminUserService manages identities from the admin panel.
type AdminUserService interface {
	List(ctx context.Context, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error)
	Get(ctx context.Context, id uint) (dto.AdminUserResponse, error)
	Create(ctx context.Context, payload dto.AdminUserCreateRequest) (dto.AdminUserResponse, error)
	Update(ctx context.Context, id uint, payload dto.AdminUserUpdateRequest, actor Actor) (dto.AdminUserResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
}

type adminUserService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    zerolog.Logger
}

// NewAdminUserService constructs the admin identity service.
func NewAdminUserService(repo repository.UserRepository, validator *validator.Validate, logger zerolog.Logger) AdminUserService {
	return &adminUserService{
		repo:      repo,
		validator: validator,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
		logger:    logger.With().Str("component", "admin_user_service").Logger(),
	}
}

func (s *adminUserService) List(ctx context.Context, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error) {
	filter := repository.UserFilter{
		Search:   strings.TrimSpace(req.Search),
		Active:   req.Active,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if raw := strings.TrimSpace(req.Role); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			return dto.AdminUserListResponse{}, ErrInvalidArgument.WithMessage("unknown role")
		}
		filter.Role = role
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AdminUserListResponse{}, err
	}

	items := make([]dto.AdminUserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewAdminUserResponse(user))
	}
	return dto.AdminUserListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(maxInt(req.Page, 1), req.PageSize, total),
	}, nil
}

func (s *adminUserService) Get(ctx context.Context, id uint) (dto.AdminUserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AdminUserResponse{}, ErrUserNotFound
		}
		return dto.AdminUserResponse{}, err
	}
	return dto.NewAdminUserResponse(user), nil
}

func (s *adminUserService) Create(ctx context.Context, payload dto.AdminUserCreateRequest) (dto.AdminUserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminUserResponse{}, err
	}

	role, ok := models.ParseRole(payload.Role)
	if !ok {
		return dto.AdminUserResponse{}, ErrInvalidArgument.WithMessage("unknown role")
	}
	hash, err := HashPassword(payload.Password)
	if err != nil {
		return dto.AdminUserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         strings.TrimSpace(s.sanitizer.Sanitize(payload.Name)),
		Email:        normalizeEmail(payload.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AdminUserResponse{}, ErrEmailTaken
		}
		return dto.AdminUserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", role.String()).Msg("identity created")
	return dto.NewAdminUserResponse(user), nil
}

func (s *adminUserService) Update(ctx context.Context, id uint, payload dto.AdminUserUpdateRequest, actor Actor) (dto.AdminUserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminUserResponse{}, err
	}

	updates := make(map[string]interface{})
	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Name))
	}
	if payload.Email != nil {
		updates["email"] = normalizeEmail(*payload.Email)
	}
	if payload.Role != nil {
		role, ok := models.ParseRole(*payload.Role)
		if !ok {
			return dto.AdminUserResponse{}, ErrInvalidArgument.WithMessage("unknown role")
		}
		if id == actor.ID && role != models.RoleAdmin {
			return dto.AdminUserResponse{}, ErrSelfLockout
		}
		updates["role"] = role
	}
	deactivate := payload.IsActive != nil && !*payload.IsActive
	if deactivate && id == actor.ID {
		return dto.AdminUserResponse{}, ErrSelfLockout
	}
	if payload.IsActive != nil && *payload.IsActive {
		updates["is_active"] = true
	}

	if len(updates) > 0 {
		if _, err := s.repo.Update(ctx, id, updates); err != nil {
			return dto.AdminUserResponse{}, mapUserWriteError(err)
		}
	}
	if deactivate {
		if err := s.repo.Deactivate(ctx, id, s.now().UTC()); err != nil {
			return dto.AdminUserResponse{}, mapUserWriteError(err)
		}
	}

	return s.Get(ctx, id)
}

// Delete deactivates the identity and revokes its refresh tokens. Audit rows keep referencing it.
func (s *adminUserService) Delete(ctx context.Context, id uint, actor Actor) error {
	if id == actor.ID {
		return ErrSelfLockout
	}
	if err := s.repo.Deactivate(ctx, id, s.now().UTC()); err != nil {
		return mapUserWriteError(err)
	}
	s.logger.Info().Uint("user_id", id).Uint("actor_id", actor.ID).Msg("identity deactivated")
	return nil
}

func mapUserWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrEmailTaken
	default:
		return err
	}
}
