package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

// ErrSeedCredentials indicates the bootstrap administrator credentials are incomplete.
var ErrSeedCredentials = errors.New("seed admin email and password must both be set")

// SeedService bootstraps the permission catalog and the first administrator.
type SeedService interface {
	SeedAccessControl(ctx context.Context) error
	SeedAdmin(ctx context.Context, email, password string) (bool, error)
}

type seedService struct {
	permissions repository.PermissionRepository
	users       repository.UserRepository
	logger      zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(permissions repository.PermissionRepository, users repository.UserRepository, logger zerolog.Logger) SeedService {
	return &seedService{
		permissions: permissions,
		users:       users,
		logger:      logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedAccessControl upserts the catalog and fills role defaults for roles that have none,
// so operator edits survive re-runs.
func (s *seedService) SeedAccessControl(ctx context.Context) error {
	if err := s.permissions.EnsureCatalog(ctx, models.PermissionCatalog); err != nil {
		return fmt.Errorf("seed permission catalog: %w", err)
	}

	for _, role := range models.Roles {
		existing, err := s.permissions.RolePermissionNames(ctx, role)
		if err != nil {
			return fmt.Errorf("read %s defaults: %w", role, err)
		}
		if len(existing) > 0 {
			continue
		}
		defaults := models.DefaultRolePermissions[role]
		if err := s.permissions.SetRolePermissions(ctx, role, defaults); err != nil {
			return fmt.Errorf("seed %s defaults: %w", role, err)
		}
		s.logger.Info().Str("role", role.String()).Int("permissions", len(defaults)).Msg("role defaults seeded")
	}
	return nil
}

// SeedAdmin creates the administrator when the email is free. It reports whether a row was created.
func (s *seedService) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return false, ErrSeedCredentials
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &admin); err != nil {
		return false, err
	}

	s.logger.Info().Uint("user_id", admin.ID).Msg("administrator seeded")
	return true, nil
}
