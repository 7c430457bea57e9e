package dto

import (
	"math"
	"time"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta derives page counts from the total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page <= 0 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return meta
}

// AdminStudentListRequest defines filters for listing students.
type AdminStudentListRequest struct {
	Page     int
	PageSize int
	Search   string
	Class    string
	Status   string
	Sort     string
}

// AdminStudentResponse serializes student data for admin endpoints.
type AdminStudentResponse struct {
	ID        uint       `json:"id"`
	UserID    *uint      `json:"user_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Class     string     `json:"class"`
	Status    string     `json:"status"`
	Flagged   bool       `json:"flagged"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// AdminStudentListResponse wraps a paginated student response.
type AdminStudentListResponse struct {
	Items      []AdminStudentResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}

// AdminStudentCreateRequest captures a new student record.
type AdminStudentCreateRequest struct {
	UserID *uint  `json:"user_id"`
	Name   string `json:"name" validate:"required,min=1,max=255"`
	Email  string `json:"email" validate:"required,email"`
	Class  string `json:"class" validate:"omitempty,max=64"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive archived suspended"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

// AdminStudentUpdateRequest captures partial update payloads for students.
type AdminStudentUpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Class   *string `json:"class" validate:"omitempty,min=1"`
	Status  *string `json:"status" validate:"omitempty,oneof=active inactive archived suspended"`
	Flagged *bool   `json:"flagged"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

// NewAdminStudentResponse converts a student model into a DTO.
func NewAdminStudentResponse(student models.Student) AdminStudentResponse {
	var deletedAt *time.Time
	if student.DeletedAt.Valid {
		t := student.DeletedAt.Time
		deletedAt = &t
	}

	return AdminStudentResponse{
		ID:        student.ID,
		UserID:    student.UserID,
		Name:      student.Name,
		Email:     student.Email,
		Class:     student.Class,
		Status:    student.Status,
		Flagged:   student.Flagged,
		Notes:     student.Notes,
		CreatedAt: student.CreatedAt,
		UpdatedAt: student.UpdatedAt,
		DeletedAt: deletedAt,
	}
}

// AdminUserListRequest defines filters for listing identities.
type AdminUserListRequest struct {
	Page     int
	PageSize int
	Search   string
	Role     string
	Active   *bool
}

// AdminUserResponse serializes an identity for admin clients. Secrets never leave the service.
type AdminUserResponse struct {
	ID               uint        `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Role             models.Role `json:"role"`
	IsActive         bool        `json:"is_active"`
	TwoFactorEnabled bool        `json:"two_factor_enabled"`
	LastLoginAt      *time.Time  `json:"last_login_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// AdminUserListResponse wraps paginated identities.
type AdminUserListResponse struct {
	Items      []AdminUserResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// AdminUserCreateRequest lets an administrator create an identity with any role.
type AdminUserCreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,oneof=student instructor admin"`
}

// AdminUserUpdateRequest patches identity attributes.
type AdminUserUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=student instructor admin"`
	IsActive *bool   `json:"is_active"`
}

// NewAdminUserResponse converts a user model into a DTO.
func NewAdminUserResponse(user models.User) AdminUserResponse {
	return AdminUserResponse{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		IsActive:         user.IsActive,
		TwoFactorEnabled: user.TwoFactorEnabled,
		LastLoginAt:      user.LastLoginAt,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
}
