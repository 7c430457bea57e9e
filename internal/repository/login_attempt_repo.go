package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// LoginAttemptRepository stores the login attempt fact table.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailuresSince(ctx context.Context, email, ip string, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type loginAttemptRepository struct {
	db *gorm.DB
}

// NewLoginAttemptRepository constructs the login attempt repository.
func NewLoginAttemptRepository(db *gorm.DB) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// CountFailuresSince counts failed attempts matching the email or the source IP.
func (r *loginAttemptRepository) CountFailuresSince(ctx context.Context, email, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LoginAttempt{}).
		Where("success = ?", false).
		Where("attempted_at >= ?", since).
		Where("(email = ? OR ip_address = ?)", email, ip).
		Count(&count).Error
	return count, err
}

func (r *loginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("attempted_at < ?", cutoff).Delete(&models.LoginAttempt{})
	return result.RowsAffected, result.Error
}
