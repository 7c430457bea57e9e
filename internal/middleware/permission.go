package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/service"
)

var (
	errPermissionDenied = apperror.Authorization(apperror.CodePermissionDenied, "missing required permission")
	errIdentityGone     = apperror.Authentication(apperror.CodeTokenInvalid, "identity no longer exists")
)

// PermissionResolver resolves the effective permission set of a user.
type PermissionResolver interface {
	Effective(ctx context.Context, userID uint) (service.PermissionSet, error)
}

// RequirePermission admits requests whose caller holds name.
func RequirePermission(resolver PermissionResolver, name string) fiber.Handler {
	return requirePermissions(resolver, func(set service.PermissionSet) bool {
		return set.Has(name)
	})
}

// RequireAnyPermission admits requests whose caller holds at least one of names.
func RequireAnyPermission(resolver PermissionResolver, names ...string) fiber.Handler {
	return requirePermissions(resolver, func(set service.PermissionSet) bool {
		return set.HasAny(names...)
	})
}

// RequireAllPermissions admits requests whose caller holds every one of names.
func RequireAllPermissions(resolver PermissionResolver, names ...string) fiber.Handler {
	return requirePermissions(resolver, func(set service.PermissionSet) bool {
		return set.HasAll(names...)
	})
}

func requirePermissions(resolver PermissionResolver, check func(service.PermissionSet) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		set, err := Permissions(c, resolver)
		if err != nil {
			return err
		}
		if !check(set) {
			return errPermissionDenied
		}
		return c.Next()
	}
}

// Permissions resolves the caller's set once per request and memoises it in Locals.
// The memo dies with the request, so grants changed in between are always observed.
func Permissions(c *fiber.Ctx, resolver PermissionResolver) (service.PermissionSet, error) {
	if set, ok := c.Locals(LocalPermissionSet).(service.PermissionSet); ok {
		return set, nil
	}

	userID, ok := UserID(c)
	if !ok {
		return nil, errAuthMissing
	}

	set, err := resolver.Effective(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return nil, errIdentityGone
		}
		return nil, err
	}
	c.Locals(LocalPermissionSet, set)
	return set, nil
}
