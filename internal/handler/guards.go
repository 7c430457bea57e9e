package handler

import "github.com/gofiber/fiber/v2"

// Guards supplies the request gate for one route group. Every stage is attached per route
// so the matched route template is visible to the rate limiter, the permission check and
// the audit stage.
type Guards struct {
	// Limit is the group's rate limit policy. It always runs first.
	Limit fiber.Handler
	// Before holds the stages between the limit and the permission check: CSRF,
	// authentication and role.
	Before             []fiber.Handler
	Permission         func(name string) fiber.Handler
	Activity           fiber.Handler
	PermissionActivity fiber.Handler
	SensitiveLimit     fiber.Handler
}

// Then returns a copy of g with extra stages run after the existing Before stages.
func (g Guards) Then(stages ...fiber.Handler) Guards {
	before := make([]fiber.Handler, 0, len(g.Before)+len(stages))
	before = append(before, g.Before...)
	g.Before = append(before, stages...)
	return g
}

func (g Guards) chain(permission string, audit fiber.Handler, sensitive bool, h fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(g.Before)+5)
	if g.Limit != nil {
		handlers = append(handlers, g.Limit)
	}
	if sensitive && g.SensitiveLimit != nil {
		handlers = append(handlers, g.SensitiveLimit)
	}
	handlers = append(handlers, g.Before...)
	if g.Permission != nil && permission != "" {
		handlers = append(handlers, g.Permission(permission))
	}
	if audit != nil {
		handlers = append(handlers, audit)
	}
	return append(handlers, h)
}

// Read guards a route that does not need an audit row.
func (g Guards) Read(permission string, h fiber.Handler) []fiber.Handler {
	return g.chain(permission, nil, false, h)
}

// Audited guards a route and records it in the activity log.
func (g Guards) Audited(permission string, h fiber.Handler) []fiber.Handler {
	return g.chain(permission, g.Activity, false, h)
}

// PermissionChange guards a route that mutates permission overrides.
func (g Guards) PermissionChange(permission string, h fiber.Handler) []fiber.Handler {
	audit := g.PermissionActivity
	if audit == nil {
		audit = g.Activity
	}
	return g.chain(permission, audit, false, h)
}

// Sensitive adds the strict rate limit in front of an audited route.
func (g Guards) Sensitive(permission string, h fiber.Handler) []fiber.Handler {
	return g.chain(permission, g.Activity, true, h)
}
