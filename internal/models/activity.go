package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is an append-only audit record of an observed request or domain event.
// UserID is nil for anonymous actors and is never a foreign key, so rows outlive identities.
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	UserID       *uint             `gorm:"index" json:"user_id"`
	Action       string            `gorm:"size:128;not null;index" json:"action"`
	ResourceType string            `gorm:"size:64;index:idx_activity_resource" json:"resource_type"`
	ResourceID   string            `gorm:"size:64;index:idx_activity_resource" json:"resource_id"`
	IPAddress    string            `gorm:"size:64" json:"ip_address"`
	UserAgent    string            `gorm:"size:512" json:"user_agent"`
	Details      datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}

// LoginAttempt is one row per login POST, successful or not.
type LoginAttempt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"size:255;not null;index" json:"email"`
	IPAddress     string    `gorm:"size:64;not null;index" json:"ip_address"`
	Success       bool      `gorm:"not null;index" json:"success"`
	FailureReason string    `gorm:"size:128" json:"failure_reason"`
	AttemptedAt   time.Time `gorm:"not null;index" json:"attempted_at"`
}
