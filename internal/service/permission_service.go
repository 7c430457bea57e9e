package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

// PermissionSet is the resolved set of permission names of one identity.
type PermissionSet map[string]struct{}

// Has reports membership. Unknown names are simply absent.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// HasAny is false for an empty list.
func (s PermissionSet) HasAny(names ...string) bool {
	for _, name := range names {
		if s.Has(name) {
			return true
		}
	}
	return false
}

// HasAll is true for an empty list.
func (s PermissionSet) HasAll(names ...string) bool {
	for _, name := range names {
		if !s.Has(name) {
			return false
		}
	}
	return true
}

// Names returns the members in lexical order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveEffective is the single place override precedence is decided: a user override
// replaces the role default for the same permission in both directions.
func resolveEffective(roleDefaults []string, overrides []repository.PermissionOverride) PermissionSet {
	set := make(PermissionSet, len(roleDefaults)+len(overrides))
	for _, name := range roleDefaults {
		set[name] = struct{}{}
	}
	for _, override := range overrides {
		if override.Granted {
			set[override.Name] = struct{}{}
			continue
		}
		delete(set, override.Name)
	}
	return set
}

// PermissionService resolves and manages fine-grained permissions.
type PermissionService interface {
	Effective(ctx context.Context, userID uint) (PermissionSet, error)
	HasPermission(ctx context.Context, userID uint, name string) (bool, error)
	HasAny(ctx context.Context, userID uint, names []string) (bool, error)
	HasAll(ctx context.Context, userID uint, names []string) (bool, error)
	Catalog(ctx context.Context) ([]dto.PermissionResponse, error)
	RoleDefaults(ctx context.Context, role string) (dto.RolePermissionsResponse, error)
	SetRolePermissions(ctx context.Context, role string, names []string) (dto.RolePermissionsResponse, error)
	UserPermissions(ctx context.Context, userID uint) (dto.UserPermissionsResponse, error)
	Grant(ctx context.Context, userID uint, name string, actorID uint) (dto.PermissionChangeResponse, error)
	Revoke(ctx context.Context, userID uint, name string, actorID uint) (dto.PermissionChangeResponse, error)
	ClearOverride(ctx context.Context, userID uint, name string) (dto.PermissionChangeResponse, error)
}

type permissionService struct {
	users        repository.UserRepository
	permissions  repository.PermissionRepository
	storeTimeout time.Duration
	logger       zerolog.Logger
}

// NewPermissionService constructs the permission resolver.
func NewPermissionService(users repository.UserRepository, permissions repository.PermissionRepository, storeTimeout time.Duration, logger zerolog.Logger) PermissionService {
	return &permissionService{
		users:        users,
		permissions:  permissions,
		storeTimeout: storeTimeout,
		logger:       logger.With().Str("component", "permission_service").Logger(),
	}
}

func (s *permissionService) Effective(ctx context.Context, userID uint) (PermissionSet, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-edu-api/internal/service/permission")
	ctx, span := tracer.Start(ctx, "permission.effective")
	span.SetAttributes(attribute.Int64("permission.user_id", int64(userID)))
	defer span.End()

	user, roleDefaults, overrides, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "permission_load_failed")
		return nil, err
	}
	if !user.IsActive {
		return PermissionSet{}, nil
	}

	set := resolveEffective(roleDefaults, overrides)
	span.SetAttributes(attribute.Int("permission.count", len(set)))
	return set, nil
}

func (s *permissionService) HasPermission(ctx context.Context, userID uint, name string) (bool, error) {
	set, err := s.Effective(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.Has(strings.TrimSpace(name)), nil
}

func (s *permissionService) HasAny(ctx context.Context, userID uint, names []string) (bool, error) {
	set, err := s.Effective(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.HasAny(names...), nil
}

func (s *permissionService) HasAll(ctx context.Context, userID uint, names []string) (bool, error) {
	set, err := s.Effective(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.HasAll(names...), nil
}

func (s *permissionService) Catalog(ctx context.Context) ([]dto.PermissionResponse, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	permissions, err := s.permissions.Catalog(storeCtx)
	if err != nil {
		return nil, storeError(storeCtx, err)
	}
	out := make([]dto.PermissionResponse, 0, len(permissions))
	for _, permission := range permissions {
		out = append(out, dto.NewPermissionResponse(permission))
	}
	return out, nil
}

func (s *permissionService) RoleDefaults(ctx context.Context, raw string) (dto.RolePermissionsResponse, error) {
	role, ok := models.ParseRole(raw)
	if !ok {
		return dto.RolePermissionsResponse{}, ErrInvalidArgument.WithMessage("unknown role")
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	names, err := s.permissions.RolePermissionNames(storeCtx, role)
	if err != nil {
		return dto.RolePermissionsResponse{}, storeError(storeCtx, err)
	}
	return dto.RolePermissionsResponse{Role: role, Permissions: nonNil(names)}, nil
}

func (s *permissionService) SetRolePermissions(ctx context.Context, raw string, names []string) (dto.RolePermissionsResponse, error) {
	role, ok := models.ParseRole(raw)
	if !ok {
		return dto.RolePermissionsResponse{}, ErrInvalidArgument.WithMessage("unknown role")
	}

	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.permissions.SetRolePermissions(storeCtx, role, cleaned); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RolePermissionsResponse{}, ErrPermissionNotFound
		}
		return dto.RolePermissionsResponse{}, storeError(storeCtx, err)
	}

	s.logger.Info().Str("role", role.String()).Int("permissions", len(cleaned)).Msg("role permissions replaced")
	current, err := s.permissions.RolePermissionNames(storeCtx, role)
	if err != nil {
		return dto.RolePermissionsResponse{}, storeError(storeCtx, err)
	}
	return dto.RolePermissionsResponse{Role: role, Permissions: nonNil(current)}, nil
}

func (s *permissionService) UserPermissions(ctx context.Context, userID uint) (dto.UserPermissionsResponse, error) {
	user, roleDefaults, overrides, err := s.load(ctx, userID)
	if err != nil {
		return dto.UserPermissionsResponse{}, err
	}

	effective := PermissionSet{}
	if user.IsActive {
		effective = resolveEffective(roleDefaults, overrides)
	}

	resp := dto.UserPermissionsResponse{
		UserID:      user.ID,
		Role:        user.Role,
		Effective:   effective.Names(),
		RoleDefault: nonNil(roleDefaults),
		Overrides:   make([]dto.PermissionOverrideResponse, 0, len(overrides)),
	}
	for _, override := range overrides {
		resp.Overrides = append(resp.Overrides, dto.PermissionOverrideResponse{
			Permission: override.Name,
			Granted:    override.Granted,
			GrantedBy:  override.GrantedBy,
		})
	}
	return resp, nil
}

func (s *permissionService) Grant(ctx context.Context, userID uint, name string, actorID uint) (dto.PermissionChangeResponse, error) {
	return s.setOverride(ctx, userID, name, actorID, true)
}

func (s *permissionService) Revoke(ctx context.Context, userID uint, name string, actorID uint) (dto.PermissionChangeResponse, error) {
	return s.setOverride(ctx, userID, name, actorID, false)
}

func (s *permissionService) ClearOverride(ctx context.Context, userID uint, name string) (dto.PermissionChangeResponse, error) {
	permission, err := s.target(ctx, userID, name)
	if err != nil {
		return dto.PermissionChangeResponse{}, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if _, err := s.permissions.DeleteOverride(storeCtx, userID, permission.ID); err != nil {
		return dto.PermissionChangeResponse{}, storeError(storeCtx, err)
	}
	s.logger.Info().Uint("user_id", userID).Str("permission", permission.Name).Msg("permission override cleared")
	return dto.PermissionChangeResponse{UserID: userID, Permission: permission.Name}, nil
}

func (s *permissionService) setOverride(ctx context.Context, userID uint, name string, actorID uint, granted bool) (dto.PermissionChangeResponse, error) {
	permission, err := s.target(ctx, userID, name)
	if err != nil {
		return dto.PermissionChangeResponse{}, err
	}

	override := models.UserPermission{UserID: userID, PermissionID: permission.ID, Granted: granted}
	if actorID > 0 {
		override.GrantedBy = &actorID
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.permissions.UpsertOverride(storeCtx, override); err != nil {
		return dto.PermissionChangeResponse{}, storeError(storeCtx, err)
	}

	s.logger.Info().
		Uint("user_id", userID).
		Uint("actor_id", actorID).
		Str("permission", permission.Name).
		Bool("granted", granted).
		Msg("permission override stored")
	return dto.PermissionChangeResponse{UserID: userID, Permission: permission.Name, Granted: &granted}, nil
}

// target validates that both the user and the permission exist.
func (s *permissionService) target(ctx context.Context, userID uint, name string) (models.Permission, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	if _, err := s.users.GetByID(storeCtx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Permission{}, ErrUserNotFound
		}
		return models.Permission{}, storeError(storeCtx, err)
	}

	permission, err := s.permissions.FindByName(storeCtx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Permission{}, ErrPermissionNotFound
		}
		return models.Permission{}, storeError(storeCtx, err)
	}
	return permission, nil
}

func (s *permissionService) load(ctx context.Context, userID uint) (models.User, []string, []repository.PermissionOverride, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, nil, nil, ErrUserNotFound
		}
		return models.User{}, nil, nil, storeError(storeCtx, err)
	}

	roleDefaults, err := s.permissions.RolePermissionNames(storeCtx, user.Role)
	if err != nil {
		return models.User{}, nil, nil, storeError(storeCtx, err)
	}
	overrides, err := s.permissions.Overrides(storeCtx, userID)
	if err != nil {
		return models.User{}, nil, nil, storeError(storeCtx, err)
	}
	return user, roleDefaults, overrides, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
