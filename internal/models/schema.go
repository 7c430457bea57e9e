package models

// All returns every model owned by the schema, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Permission{},
		&RolePermission{},
		&UserPermission{},
		&RefreshToken{},
		&ActivityLog{},
		&LoginAttempt{},
		&Student{},
		&Course{},
		&Lesson{},
	}
}
