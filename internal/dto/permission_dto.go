package dto

import "github.com/noah-isme/gema-edu-api/internal/models"

// PermissionResponse serializes a catalog entry.
type PermissionResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// RolePermissionsResponse lists the default set of one role.
type RolePermissionsResponse struct {
	Role        models.Role `json:"role"`
	Permissions []string    `json:"permissions"`
}

// SetRolePermissionsRequest replaces a role's default set.
type SetRolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required,max=100"`
}

// PermissionOverrideResponse describes one per-user override.
type PermissionOverrideResponse struct {
	Permission string `json:"permission"`
	Granted    bool   `json:"granted"`
	GrantedBy  *uint  `json:"granted_by"`
}

// UserPermissionsResponse is the effective set of a user with the overrides that shaped it.
type UserPermissionsResponse struct {
	UserID      uint                         `json:"user_id"`
	Role        models.Role                  `json:"role"`
	Effective   []string                     `json:"effective"`
	RoleDefault []string                     `json:"role_default"`
	Overrides   []PermissionOverrideResponse `json:"overrides"`
}

// PermissionChangeRequest names the permission to grant, revoke or clear.
type PermissionChangeRequest struct {
	Permission string `json:"permission" validate:"required,max=100"`
}

// PermissionChangeResponse reports an override mutation. Granted is nil when the override was cleared.
type PermissionChangeResponse struct {
	UserID     uint   `json:"user_id"`
	Permission string `json:"permission"`
	Granted    *bool  `json:"granted"`
}

// NewPermissionResponse converts a permission model into a DTO.
func NewPermissionResponse(permission models.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          permission.ID,
		Name:        permission.Name,
		Resource:    permission.Resource,
		Action:      permission.Action,
		Description: permission.Description,
	}
}
