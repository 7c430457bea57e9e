package dto

import (
	"time"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// LoginRequest is the credential payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
	OTP      string `json:"otp" validate:"omitempty,numeric,len=6"`
}

// RegisterRequest creates a student identity.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// RefreshRequest carries an opaque refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthUserResponse is the public view of the authenticated identity.
type AuthUserResponse struct {
	ID               uint        `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Role             models.Role `json:"role"`
	TwoFactorEnabled bool        `json:"two_factor_enabled"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken      string           `json:"access_token"`
	RefreshToken     string           `json:"refresh_token"`
	TokenType        string           `json:"token_type"`
	ExpiresAt        time.Time        `json:"expires_at"`
	RefreshExpiresAt time.Time        `json:"refresh_expires_at"`
	User             AuthUserResponse `json:"user"`
}

// MeResponse describes the caller and its effective permissions.
type MeResponse struct {
	User        AuthUserResponse `json:"user"`
	Permissions []string         `json:"permissions"`
}

// UserRef identifies the identity affected by an authentication event.
type UserRef struct {
	ID uint `json:"id"`
}

// LogoutResponse names the identity whose session ended.
type LogoutResponse struct {
	User UserRef `json:"user"`
}

// CSRFTokenResponse carries the token clients echo in X-CSRF-Token.
type CSRFTokenResponse struct {
	Token  string `json:"csrf_token"`
	Header string `json:"header"`
}

// NewAuthUserResponse converts a user model into the public identity view.
func NewAuthUserResponse(user models.User) AuthUserResponse {
	return AuthUserResponse{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		TwoFactorEnabled: user.TwoFactorEnabled,
	}
}
