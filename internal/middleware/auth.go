package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
)

// Locals keys populated by the gate.
const (
	LocalUserID        = "user_id"
	LocalUserRole      = "user_role"
	LocalUserEmail     = "user_email"
	LocalPermissionSet = "permission_set"
)

var (
	errAuthMissing   = apperror.Authentication(apperror.CodeAuthMissing, "authorization header missing")
	errBearerInvalid = apperror.Authentication(apperror.CodeTokenInvalid, "invalid authorization header")
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (service.Claims, error)
}

// Authenticate requires a valid bearer access token and exposes its claims through Locals.
func Authenticate(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return errAuthMissing
		}

		token, ok := bearerToken(authorization)
		if !ok {
			return errBearerInvalid
		}

		claims, err := verifier.VerifyAccess(token)
		if err != nil {
			return err
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUserRole, claims.Role)
		c.Locals(LocalUserEmail, claims.Email)
		return c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id > 0
}

// UserRole returns the authenticated role, or an empty role for anonymous requests.
func UserRole(c *fiber.Ctx) models.Role {
	role, _ := c.Locals(LocalUserRole).(models.Role)
	return role
}

// Actor bundles the authenticated identity for service calls.
func Actor(c *fiber.Ctx) service.Actor {
	id, _ := UserID(c)
	return service.Actor{ID: id, Role: UserRole(c)}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
