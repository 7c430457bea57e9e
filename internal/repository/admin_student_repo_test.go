package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

func TestAdminStudentRepositoryListFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)

	older := models.Student{Name: "Alice Johnson", Email: "alice@example.com", Class: "A", Status: models.StudentStatusActive, CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	newer := models.Student{Name: "Bob Stone", Email: "bob@example.com", Class: "B", Status: models.StudentStatusInactive, CreatedAt: time.Now().UTC().Add(-1 * time.Hour)}
	require.NoError(t, repo.Create(context.Background(), &older))
	require.NoError(t, repo.Create(context.Background(), &newer))

	students, total, err := repo.List(context.Background(), AdminStudentFilter{Search: "alice", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, students, 1)
	require.Equal(t, "Alice Johnson", students[0].Name)

	students, total, err = repo.List(context.Background(), AdminStudentFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Bob Stone", students[0].Name, "expected newest record first")

	students, _, err = repo.List(context.Background(), AdminStudentFilter{Sort: "oldest; DROP TABLE students", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, "Bob Stone", students[0].Name, "unknown sort falls back to newest")
}

func TestAdminStudentRepositorySoftDeleteArchives(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)
	ctx := context.Background()

	student := models.Student{Name: "Cara", Email: "cara@example.com", Status: models.StudentStatusActive}
	require.NoError(t, repo.Create(ctx, &student))

	require.NoError(t, repo.SoftDelete(ctx, student.ID))
	_, err := repo.GetByID(ctx, student.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	all, total, err := repo.List(ctx, AdminStudentFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, models.StudentStatusArchived, all[0].Status)

	require.ErrorIs(t, repo.SoftDelete(ctx, student.ID), gorm.ErrRecordNotFound)
}

func TestAdminStudentRepositoryUpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminStudentRepository(db)

	_, err := repo.Update(context.Background(), 404, map[string]interface{}{"name": "Nobody"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
