package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

type memoryActivityRepo struct {
	mu      sync.Mutex
	entries []models.ActivityLog
	fail    bool
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("insert failed")
	}
	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func (m *memoryActivityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memoryActivityRepo) snapshot() []models.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActivityLog(nil), m.entries...)
}

type capturePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (p *capturePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func TestSanitizeDetailsMasksSecrets(t *testing.T) {
	details := sanitizeDetails(map[string]interface{}{
		"password":      "hunter2",
		"refresh_token": "abc.def",
		"OTP":           "123456",
		"note":          `<script>alert(1)</script>hello`,
		"nested": map[string]interface{}{
			"client_secret": "s3cr3t",
			"status":        200,
		},
	})

	require.Equal(t, "***", details["password"])
	require.Equal(t, "***", details["refresh_token"])
	require.Equal(t, "***", details["OTP"])
	require.Equal(t, "hello", details["note"])
	nested := details["nested"].(map[string]interface{})
	require.Equal(t, "***", nested["client_secret"])
	require.Equal(t, 200, nested["status"])
}

func TestActivityQueueDropsWhenFull(t *testing.T) {
	queue := NewActivityQueue(1, testLogger())

	require.True(t, queue.Record(ActivityEntry{Action: "get.health"}))
	require.False(t, queue.Record(ActivityEntry{Action: "get.health"}))
	require.Equal(t, 1, queue.Pending())
}

func TestActivityDispatcherPersistsAndPublishes(t *testing.T) {
	repo := &memoryActivityRepo{}
	publisher := &capturePublisher{}
	queue := NewActivityQueue(16, testLogger())
	dispatcher := NewActivityDispatcher(queue, repo, publisher, DispatcherConfig{Workers: 2, Subject: "gema.test.activity"}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Serve(ctx) }()

	userID := uint(7)
	require.True(t, queue.Record(ActivityEntry{
		UserID:       &userID,
		Action:       "post.auth.login",
		ResourceType: "auth",
		Details:      map[string]interface{}{"password": "hunter2", "status": 200},
	}))

	require.Eventually(t, func() bool { return publisher.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	entries := repo.snapshot()
	require.Len(t, entries, 1)
	require.Equal(t, "***", entries[0].Details["password"])
	require.False(t, entries[0].CreatedAt.IsZero())

	var event dto.ActivityLogResponse
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	require.Equal(t, "post.auth.login", event.Action)
	require.Equal(t, &userID, event.UserID)
	require.Equal(t, "gema.test.activity", publisher.subjects[0])

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestActivityDispatcherDrainsOnShutdown(t *testing.T) {
	repo := &memoryActivityRepo{}
	queue := NewActivityQueue(16, testLogger())
	for i := 0; i < 3; i++ {
		queue.Record(ActivityEntry{Action: "get.admin.users"})
	}
	dispatcher := NewActivityDispatcher(queue, repo, nil, DispatcherConfig{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = dispatcher.Serve(ctx)

	require.Len(t, repo.snapshot(), 3)
	require.Zero(t, queue.Pending())
}

func TestActivityDispatcherSurvivesStoreFailure(t *testing.T) {
	repo := &memoryActivityRepo{fail: true}
	publisher := &capturePublisher{}
	queue := NewActivityQueue(4, testLogger())
	queue.Record(ActivityEntry{Action: "get.admin.users"})
	dispatcher := NewActivityDispatcher(queue, repo, publisher, DispatcherConfig{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NotPanics(t, func() { _ = dispatcher.Serve(ctx) })
	require.Zero(t, publisher.count())
}

func TestActivityReadsValidatePaging(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())
	ctx := context.Background()

	resp, err := svc.System(ctx, dto.ActivityListRequest{})
	require.NoError(t, err)
	require.Equal(t, 25, resp.Pagination.PageSize)
	require.Equal(t, 1, resp.Pagination.Page)

	resp, err = svc.ForUser(ctx, 1, dto.ActivityPageRequest{PageSize: 5000})
	require.NoError(t, err)
	require.Equal(t, 200, resp.Pagination.PageSize)

	_, err = svc.ByAction(ctx, "get.admin.users", dto.ActivityPageRequest{Sort: "ip_address"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.ByAction(ctx, "get.admin.users", dto.ActivityPageRequest{Order: "sideways"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.ByAction(ctx, " ", dto.ActivityPageRequest{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	now := time.Now()
	_, err = svc.ByDateRange(ctx, now, now.Add(-time.Hour), dto.ActivityPageRequest{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestActivityReadsAgainstStore(t *testing.T) {
	db := setupServiceDB(t)
	repo := repository.NewActivityLogRepository(db)
	svc := NewActivityService(repo, testLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	userID := uint(3)
	seed := []models.ActivityLog{
		{UserID: &userID, Action: "get.admin.users", ResourceType: "admin", CreatedAt: now.Add(-3 * time.Hour)},
		{UserID: &userID, Action: "post.auth.login", ResourceType: "auth", CreatedAt: now.Add(-2 * time.Hour)},
		{Action: "post.auth.login", ResourceType: "auth", CreatedAt: now.Add(-1 * time.Hour)},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	byUser, err := svc.ForUser(ctx, userID, dto.ActivityPageRequest{})
	require.NoError(t, err)
	require.Len(t, byUser.Items, 2)
	require.Equal(t, "post.auth.login", byUser.Items[0].Action, "newest first by default")

	byAction, err := svc.ByAction(ctx, "post.auth.login", dto.ActivityPageRequest{Order: "asc"})
	require.NoError(t, err)
	require.Len(t, byAction.Items, 2)
	require.Equal(t, &userID, byAction.Items[0].UserID)

	byRange, err := svc.ByDateRange(ctx, now.Add(-150*time.Minute), now, dto.ActivityPageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(2), byRange.Pagination.TotalItems)

	byResource, err := svc.ByResource(ctx, "admin", "", dto.ActivityPageRequest{PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, 1, byResource.Pagination.TotalPages)
	require.Equal(t, "get.admin.users", byResource.Items[0].Action)
}

func TestActivityCleanupDeletesOnlyExpiredRows(t *testing.T) {
	db := setupServiceDB(t)
	repo := repository.NewActivityLogRepository(db)
	svc := NewActivityService(repo, testLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	for _, age := range []time.Duration{31 * 24 * time.Hour, 45 * 24 * time.Hour, 29 * 24 * time.Hour, time.Hour} {
		require.NoError(t, repo.Create(ctx, &models.ActivityLog{Action: "get.health", CreatedAt: now.Add(-age)}))
	}

	resp, err := svc.Cleanup(ctx, 30)
	require.NoError(t, err)
	require.Equal(t, int64(2), resp.Deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Count(&remaining).Error)
	require.Equal(t, int64(2), remaining)

	_, err = svc.Cleanup(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
