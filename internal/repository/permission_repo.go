package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// PermissionOverride is a user override joined with its permission name.
type PermissionOverride struct {
	PermissionID uint
	Name         string
	Granted      bool
	GrantedBy    *uint
}

// PermissionRepository reads the permission catalog, role defaults and per-user overrides.
type PermissionRepository interface {
	Catalog(ctx context.Context) ([]models.Permission, error)
	FindByName(ctx context.Context, name string) (models.Permission, error)
	EnsureCatalog(ctx context.Context, permissions []models.Permission) error
	RolePermissionNames(ctx context.Context, role models.Role) ([]string, error)
	SetRolePermissions(ctx context.Context, role models.Role, names []string) error
	Overrides(ctx context.Context, userID uint) ([]PermissionOverride, error)
	UpsertOverride(ctx context.Context, override models.UserPermission) error
	DeleteOverride(ctx context.Context, userID, permissionID uint) (int64, error)
}

type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository constructs the permission repository.
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) Catalog(ctx context.Context) ([]models.Permission, error) {
	var permissions []models.Permission
	if err := r.db.WithContext(ctx).Order("resource ASC").Order("name ASC").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *permissionRepository) FindByName(ctx context.Context, name string) (models.Permission, error) {
	var permission models.Permission
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&permission).Error; err != nil {
		return models.Permission{}, err
	}
	return permission, nil
}

// EnsureCatalog inserts missing permissions and refreshes descriptions of existing ones.
func (r *permissionRepository) EnsureCatalog(ctx context.Context, permissions []models.Permission) error {
	if len(permissions) == 0 {
		return nil
	}
	rows := append([]models.Permission(nil), permissions...)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"resource", "action", "description", "updated_at"}),
	}).Create(&rows).Error
}

func (r *permissionRepository) RolePermissionNames(ctx context.Context, role models.Role) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("role_permissions").
		Select("permissions.name").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role = ?", role).
		Order("permissions.name ASC").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// SetRolePermissions replaces the default set of a role atomically. Unknown names abort the
// whole replacement with gorm.ErrRecordNotFound.
func (r *permissionRepository) SetRolePermissions(ctx context.Context, role models.Role, names []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var permissions []models.Permission
		if len(names) > 0 {
			if err := tx.Where("name IN ?", names).Find(&permissions).Error; err != nil {
				return err
			}
			if len(permissions) != len(uniqueStrings(names)) {
				return gorm.ErrRecordNotFound
			}
		}

		if err := tx.Where("role = ?", role).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permissions) == 0 {
			return nil
		}

		rows := make([]models.RolePermission, 0, len(permissions))
		for _, permission := range permissions {
			rows = append(rows, models.RolePermission{Role: role, PermissionID: permission.ID})
		}
		return tx.Create(&rows).Error
	})
}

func (r *permissionRepository) Overrides(ctx context.Context, userID uint) ([]PermissionOverride, error) {
	var overrides []PermissionOverride
	err := r.db.WithContext(ctx).
		Table("user_permissions").
		Select("user_permissions.permission_id, permissions.name, user_permissions.granted, user_permissions.granted_by").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.name ASC").
		Scan(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *permissionRepository) UpsertOverride(ctx context.Context, override models.UserPermission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"granted", "granted_by", "updated_at"}),
	}).Create(&override).Error
}

func (r *permissionRepository) DeleteOverride(ctx context.Context, userID, permissionID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&models.UserPermission{})
	return result.RowsAffected, result.Error
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
