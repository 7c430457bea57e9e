package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// ActionCount is one row of the most frequent actions aggregate.
type ActionCount struct {
	Action string
	Count  int64
}

// FailureSource groups failed logins by source address.
type FailureSource struct {
	IPAddress string
	Failures  int64
}

// AdminAnalyticsRepository supplies aggregates over the audit tables for the admin dashboard.
type AdminAnalyticsRepository interface {
	CountActivitySince(ctx context.Context, since time.Time) (int64, error)
	CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error)
	TopActionsSince(ctx context.Context, since time.Time, limit int) ([]ActionCount, error)
	CountLoginAttemptsSince(ctx context.Context, since time.Time, success bool) (int64, error)
	TopFailureSourcesSince(ctx context.Context, since time.Time, limit int) ([]FailureSource, error)
}

type adminAnalyticsRepository struct {
	db *gorm.DB
}

// NewAdminAnalyticsRepository constructs the analytics repository.
func NewAdminAnalyticsRepository(db *gorm.DB) AdminAnalyticsRepository {
	return &adminAnalyticsRepository{db: db}
}

func (r *adminAnalyticsRepository) CountActivitySince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *adminAnalyticsRepository) CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Where("created_at >= ?", since).
		Where("user_id IS NOT NULL").
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

func (r *adminAnalyticsRepository) TopActionsSince(ctx context.Context, since time.Time, limit int) ([]ActionCount, error) {
	var rows []ActionCount
	err := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Select("action, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("action").
		Order("count DESC").
		Order("action ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *adminAnalyticsRepository) CountLoginAttemptsSince(ctx context.Context, since time.Time, success bool) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LoginAttempt{}).
		Where("attempted_at >= ?", since).
		Where("success = ?", success).
		Count(&count).Error
	return count, err
}

func (r *adminAnalyticsRepository) TopFailureSourcesSince(ctx context.Context, since time.Time, limit int) ([]FailureSource, error) {
	var rows []FailureSource
	err := r.db.WithContext(ctx).
		Model(&models.LoginAttempt{}).
		Select("ip_address, COUNT(*) AS failures").
		Where("attempted_at >= ?", since).
		Where("success = ?", false).
		Group("ip_address").
		Order("failures DESC").
		Order("ip_address ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
