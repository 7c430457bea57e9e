package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// AuthHandler serves the credential endpoints.
type AuthHandler struct {
	auth      service.AuthService
	resolver  middleware.PermissionResolver
	csrf      *middleware.CSRF
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth service.AuthService, resolver middleware.PermissionResolver, csrf *middleware.CSRF, validator *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		resolver:  resolver,
		csrf:      csrf,
		validator: validator,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		h.auth.RejectMalformedLogin(c.UserContext(), clientInfo(c))
		return errInvalidPayload
	}

	result, err := h.auth.Login(c.UserContext(), payload, clientInfo(c))
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "login successful", result)
}

// Register creates a student identity and signs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}

	result, err := h.auth.Register(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", result)
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}
	if err := h.validator.Struct(payload); err != nil {
		return err
	}

	result, err := h.auth.Refresh(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "token refreshed", result)
}

// Logout revokes a refresh token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}
	if err := h.validator.Struct(payload); err != nil {
		return err
	}

	userID, err := h.auth.Logout(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return err
	}
	requestLogger(h.logger, c).Debug().Uint("user_id", userID).Msg("refresh token revoked")
	return utils.SendSuccess(c, "logged out", dto.LogoutResponse{User: dto.UserRef{ID: userID}})
}

// CSRFToken issues the token for the caller's CSRF session.
func (h *AuthHandler) CSRFToken(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "csrf token issued", dto.CSRFTokenResponse{
		Token:  h.csrf.IssueToken(c),
		Header: middleware.CSRFHeader,
	})
}

// Me returns the caller and its effective permissions.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	user, err := h.auth.CurrentUser(c.UserContext(), userID)
	if err != nil {
		return err
	}

	set, err := middleware.Permissions(c, h.resolver)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "current user", dto.MeResponse{User: user, Permissions: set.Names()})
}
