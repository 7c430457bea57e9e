package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// RefreshTokenRepository stores hashed refresh credentials.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Find(ctx context.Context, id string) (models.RefreshToken, error)
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository constructs the refresh token repository.
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) Find(ctx context.Context, id string) (models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		return models.RefreshToken{}, err
	}
	return token, nil
}

// Revoke marks a live token revoked. It reports false when the token was already revoked,
// which lets rotation detect a concurrent refresh of the same token.
func (r *refreshTokenRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	return result.RowsAffected > 0, result.Error
}
