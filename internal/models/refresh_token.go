package models

import "time"

// RefreshToken stores the hash of an opaque refresh credential.
type RefreshToken struct {
	ID        string     `gorm:"primaryKey;size:26" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	TokenHash string     `gorm:"size:64;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at"`
}

// Usable reports whether the token may still authenticate a refresh at the given instant.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
