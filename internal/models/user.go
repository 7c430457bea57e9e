package models

import (
	"strings"
	"time"
)

// Role is the coarse category of an identity.
type Role string

// Supported roles.
const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Roles lists every role in ascending privilege order.
var Roles = []Role{RoleStudent, RoleInstructor, RoleAdmin}

// ParseRole normalises raw input into a Role. The boolean is false for unknown values.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Valid reports whether the role belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Rank orders roles by privilege. Unknown roles rank below students.
func (r Role) Rank() int {
	switch r {
	case RoleStudent:
		return 1
	case RoleInstructor:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) String() string {
	return string(r)
}

// User is an identity able to authenticate against the platform.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"size:255;not null" json:"-"`
	Role             Role       `gorm:"size:32;not null;default:student;index" json:"role"`
	IsActive         bool       `gorm:"not null" json:"is_active"`
	TwoFactorEnabled bool       `gorm:"not null;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string     `gorm:"size:128" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	RefreshTokens   []RefreshToken   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserPermissions []UserPermission `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
