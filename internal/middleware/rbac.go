package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/models"
)

var errRoleForbidden = apperror.Authorization(apperror.CodeRoleForbidden, "insufficient role")

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		if role.Valid() {
			allowed[role] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return errAuthMissing
		}
		if _, ok := allowed[UserRole(c)]; !ok {
			return errRoleForbidden
		}
		return c.Next()
	}
}

// RequireMinimumRole admits the given role and every role ranked above it.
func RequireMinimumRole(minimum models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return errAuthMissing
		}
		role := UserRole(c)
		if !role.Valid() || role.Rank() < minimum.Rank() {
			return errRoleForbidden
		}
		return c.Next()
	}
}
