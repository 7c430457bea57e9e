package models

import (
	"time"

	"gorm.io/gorm"
)

// Student status values.
const (
	StudentStatusActive    = "active"
	StudentStatusInactive  = "inactive"
	StudentStatusSuspended = "suspended"
	StudentStatusArchived  = "archived"
)

// Student is the academic record managed by administrators. UserID links it to a login
// identity when the student has one.
type Student struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    *uint          `gorm:"index" json:"user_id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Email     string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Class     string         `gorm:"size:64;index" json:"class"`
	Status    string         `gorm:"size:32;not null;index" json:"status"`
	Flagged   bool           `gorm:"not null" json:"flagged"`
	Notes     string         `gorm:"type:text" json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
