package service

import "github.com/noah-isme/gema-edu-api/internal/models"

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uint
	Role models.Role
}
