package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

func TestActivityLogRepositoryFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	uid := uint(7)

	entries := []models.ActivityLog{
		{UserID: &uid, Action: "post.auth.login", ResourceType: "auth", CreatedAt: now.Add(-3 * time.Hour)},
		{UserID: &uid, Action: "get.admin.users", ResourceType: "users", CreatedAt: now.Add(-2 * time.Hour)},
		{Action: "get.admin.students.id", ResourceType: "students", ResourceID: "12", CreatedAt: now.Add(-time.Hour)},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	items, total, err := repo.List(ctx, ActivityLogFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, "get.admin.students.id", items[0].Action, "newest first by default")

	items, total, err = repo.List(ctx, ActivityLogFilter{UserID: &uid, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	items, _, err = repo.List(ctx, ActivityLogFilter{ResourceType: "students", ResourceID: "12"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	start := now.Add(-150 * time.Minute)
	end := now.Add(-90 * time.Minute)
	items, _, err = repo.List(ctx, ActivityLogFilter{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "get.admin.users", items[0].Action)

	items, _, err = repo.List(ctx, ActivityLogFilter{SortField: "action", SortAsc: true, Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "get.admin.users", items[0].Action)
}

func TestActivityLogRepositoryDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, age := range []time.Duration{31 * 24 * time.Hour, 45 * 24 * time.Hour, 29 * 24 * time.Hour, time.Hour} {
		require.NoError(t, repo.Create(ctx, &models.ActivityLog{Action: "x", CreatedAt: now.Add(-age)}))
	}

	deleted, err := repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	_, total, err := repo.List(ctx, ActivityLogFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}

func TestLoginAttemptRepositoryCountsByEmailOrIP(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoginAttemptRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	attempts := []models.LoginAttempt{
		{Email: "a@gema.test", IPAddress: "10.0.0.1", AttemptedAt: now.Add(-time.Minute)},
		{Email: "a@gema.test", IPAddress: "10.0.0.2", AttemptedAt: now.Add(-2 * time.Minute)},
		{Email: "b@gema.test", IPAddress: "10.0.0.1", AttemptedAt: now.Add(-3 * time.Minute)},
		{Email: "a@gema.test", IPAddress: "10.0.0.9", AttemptedAt: now.Add(-time.Hour)},
		{Email: "a@gema.test", IPAddress: "10.0.0.1", Success: true, AttemptedAt: now},
	}
	for i := range attempts {
		require.NoError(t, repo.Create(ctx, &attempts[i]))
	}

	since := now.Add(-15 * time.Minute)
	count, err := repo.CountFailuresSince(ctx, "a@gema.test", "10.0.0.7", since)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = repo.CountFailuresSince(ctx, "c@gema.test", "10.0.0.1", since)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	deleted, err := repo.DeleteOlderThan(ctx, since)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}
