package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

func seedCatalog(t *testing.T, repo PermissionRepository) {
	t.Helper()
	require.NoError(t, repo.EnsureCatalog(context.Background(), models.PermissionCatalog))
}

func TestPermissionRepositoryEnsureCatalogIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPermissionRepository(db)

	seedCatalog(t, repo)
	seedCatalog(t, repo)

	catalog, err := repo.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, len(models.PermissionCatalog))
	require.Zero(t, models.PermissionCatalog[0].ID, "catalog template must not be mutated")
}

func TestPermissionRepositorySetRolePermissionsReplacesAtomically(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPermissionRepository(db)
	ctx := context.Background()
	seedCatalog(t, repo)

	require.NoError(t, repo.SetRolePermissions(ctx, models.RoleInstructor, []string{models.PermLessonsRead, models.PermStudentsRead}))
	names, err := repo.RolePermissionNames(ctx, models.RoleInstructor)
	require.NoError(t, err)
	require.Equal(t, []string{models.PermLessonsRead, models.PermStudentsRead}, names)

	err = repo.SetRolePermissions(ctx, models.RoleInstructor, []string{models.PermLessonsUpdate, "courses.fly"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	names, err = repo.RolePermissionNames(ctx, models.RoleInstructor)
	require.NoError(t, err)
	require.Equal(t, []string{models.PermLessonsRead, models.PermStudentsRead}, names, "failed replacement must roll back")
}

func TestPermissionRepositoryOverrides(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPermissionRepository(db)
	ctx := context.Background()
	seedCatalog(t, repo)

	admin := createUser(t, db, "root@gema.test", models.RoleAdmin)
	user := createUser(t, db, "ovr@gema.test", models.RoleStudent)
	perm, err := repo.FindByName(ctx, models.PermStudentsRead)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertOverride(ctx, models.UserPermission{UserID: user.ID, PermissionID: perm.ID, Granted: true, GrantedBy: &admin.ID}))
	require.NoError(t, repo.UpsertOverride(ctx, models.UserPermission{UserID: user.ID, PermissionID: perm.ID, Granted: false, GrantedBy: &admin.ID}))

	overrides, err := repo.Overrides(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.Equal(t, models.PermStudentsRead, overrides[0].Name)
	require.False(t, overrides[0].Granted)

	removed, err := repo.DeleteOverride(ctx, user.ID, perm.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	overrides, err = repo.Overrides(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, overrides)
}

func TestUserPermissionsCascadeWithUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPermissionRepository(db)
	ctx := context.Background()
	seedCatalog(t, repo)

	user := createUser(t, db, "gone@gema.test", models.RoleStudent)
	perm, err := repo.FindByName(ctx, models.PermUsersRead)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertOverride(ctx, models.UserPermission{UserID: user.ID, PermissionID: perm.ID, Granted: true}))

	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.UserPermission{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}
