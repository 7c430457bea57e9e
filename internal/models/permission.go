package models

import "time"

// Permission is a named capability in resource.action form, e.g. "students.read".
type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Resource    string    `gorm:"size:64;not null;index" json:"resource"`
	Action      string    `gorm:"size:32;not null" json:"action"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission maps a role to one of its default permissions.
type RolePermission struct {
	Role         Role       `gorm:"primaryKey;size:32" json:"role"`
	PermissionID uint       `gorm:"primaryKey" json:"permission_id"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE" json:"-"`
}

// UserPermission overrides the role default for one user. Granted=false revokes.
type UserPermission struct {
	UserID       uint       `gorm:"primaryKey" json:"user_id"`
	PermissionID uint       `gorm:"primaryKey" json:"permission_id"`
	Granted      bool       `gorm:"not null" json:"granted"`
	GrantedBy    *uint      `json:"granted_by"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Permission names seeded into the catalog.
const (
	PermUsersRead         = "users.read"
	PermUsersCreate       = "users.create"
	PermUsersUpdate       = "users.update"
	PermUsersDelete       = "users.delete"
	PermStudentsRead      = "students.read"
	PermStudentsCreate    = "students.create"
	PermStudentsUpdate    = "students.update"
	PermStudentsDelete    = "students.delete"
	PermPermissionsRead   = "permissions.read"
	PermPermissionsManage = "permissions.manage"
	PermActivityRead      = "activity.read"
	PermActivityManage    = "activity.manage"
	PermLessonsRead       = "lessons.read"
	PermLessonsUpdate     = "lessons.update"
)

// PermissionCatalog lists every built-in permission with its description.
var PermissionCatalog = []Permission{
	{Name: PermUsersRead, Resource: "users", Action: "read", Description: "View user accounts"},
	{Name: PermUsersCreate, Resource: "users", Action: "create", Description: "Create user accounts"},
	{Name: PermUsersUpdate, Resource: "users", Action: "update", Description: "Edit user accounts and roles"},
	{Name: PermUsersDelete, Resource: "users", Action: "delete", Description: "Deactivate user accounts"},
	{Name: PermStudentsRead, Resource: "students", Action: "read", Description: "View student records"},
	{Name: PermStudentsCreate, Resource: "students", Action: "create", Description: "Create student records"},
	{Name: PermStudentsUpdate, Resource: "students", Action: "update", Description: "Edit student records"},
	{Name: PermStudentsDelete, Resource: "students", Action: "delete", Description: "Archive student records"},
	{Name: PermPermissionsRead, Resource: "permissions", Action: "read", Description: "View permission assignments"},
	{Name: PermPermissionsManage, Resource: "permissions", Action: "manage", Description: "Grant and revoke permissions"},
	{Name: PermActivityRead, Resource: "activity", Action: "read", Description: "View activity logs"},
	{Name: PermActivityManage, Resource: "activity", Action: "manage", Description: "Purge activity logs"},
	{Name: PermLessonsRead, Resource: "lessons", Action: "read", Description: "View course lessons"},
	{Name: PermLessonsUpdate, Resource: "lessons", Action: "update", Description: "Edit and reorder course lessons"},
}

// DefaultRolePermissions is the permission set each role starts with.
var DefaultRolePermissions = map[Role][]string{
	RoleStudent: {
		PermLessonsRead,
	},
	RoleInstructor: {
		PermLessonsRead,
		PermLessonsUpdate,
		PermStudentsRead,
		PermStudentsUpdate,
	},
	RoleAdmin: {
		PermUsersRead,
		PermUsersCreate,
		PermUsersUpdate,
		PermUsersDelete,
		PermStudentsRead,
		PermStudentsCreate,
		PermStudentsUpdate,
		PermStudentsDelete,
		PermPermissionsRead,
		PermPermissionsManage,
		PermActivityRead,
		PermActivityManage,
		PermLessonsRead,
		PermLessonsUpdate,
	},
}
