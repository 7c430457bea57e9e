package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/config"
	"github.com/noah-isme/gema-edu-api/internal/handler"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/observability"
	"github.com/noah-isme/gema-edu-api/internal/ratelimit"
	"github.com/noah-isme/gema-edu-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler            *handler.AuthHandler
	AdminUserHandler       *handler.AdminUserHandler
	AdminStudentHandler    *handler.AdminStudentHandler
	AdminPermissionHandler *handler.AdminPermissionHandler
	AdminActivityHandler   *handler.AdminActivityHandler
	AdminAnalyticsHandler  *handler.AdminAnalyticsHandler
	SeedHandler            *handler.SeedHandler
	LessonHandler          *handler.LessonHandler
	Verifier               middleware.TokenVerifier
	Resolver               middleware.PermissionResolver
	Recorder               service.ActivityRecorder
	CSRF                   *middleware.CSRF
	RateLimitStore         ratelimit.Store
	HealthChecks           map[string]handler.PingFunc
	Logger                 zerolog.Logger
}

// Register wires the HTTP routes into the fiber application. Every route runs the gate in
// the same order: rate limit, CSRF, authentication, role, permission, then the handler
// wrapped by the activity recorder.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	limit := func(policy ratelimit.Policy) fiber.Handler {
		return middleware.RateLimit(middleware.RateLimitConfig{
			Store:    deps.RateLimitStore,
			Policy:   policy,
			Verifier: deps.Verifier,
			Logger:   deps.Logger,
		})
	}
	csrf := deps.CSRF.Protect()
	authenticate := middleware.Authenticate(deps.Verifier)

	base := handler.Guards{
		Permission: func(name string) fiber.Handler {
			return middleware.RequirePermission(deps.Resolver, name)
		},
		Activity:           middleware.Activity(deps.Recorder),
		PermissionActivity: middleware.PermissionActivity(deps.Recorder),
		SensitiveLimit:     limit(ratelimit.Sensitive),
	}

	if h := deps.AuthHandler; h != nil {
		auth := api.Group("/auth")
		auth.Get("/csrf-token", limit(ratelimit.Read), h.CSRFToken)
		auth.Post("/login", limit(ratelimit.Auth), csrf, middleware.AuthActivity(deps.Recorder, "login"), h.Login)
		auth.Post("/register", limit(ratelimit.Auth), csrf, middleware.AuthActivity(deps.Recorder, "register"), h.Register)
		auth.Post("/refresh", limit(ratelimit.Auth), csrf, middleware.AuthActivity(deps.Recorder, "refresh"), h.Refresh)
		auth.Post("/logout", limit(ratelimit.Standard), csrf, middleware.AuthActivity(deps.Recorder, "logout"), h.Logout)
		auth.Get("/me", limit(ratelimit.Read), authenticate, h.Me)
	}

	// Gate stages attach per route; inside group middleware the route template is only the prefix.
	admin := api.Group("/admin")
	guards := base
	guards.Limit = limit(ratelimit.Standard)
	guards = guards.Then(csrf, authenticate, middleware.RequireRole(models.RoleAdmin))
	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin.Group("/users"), guards)
	}
	if deps.AdminStudentHandler != nil {
		deps.AdminStudentHandler.Register(admin.Group("/students"), guards)
	}
	if deps.AdminPermissionHandler != nil {
		deps.AdminPermissionHandler.Register(admin.Group("/permissions"), guards)
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity-logs"), guards)
	}
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(admin.Group("/access-control"), guards)
	}
	if deps.AdminAnalyticsHandler != nil {
		deps.AdminAnalyticsHandler.Register(admin.Group("/analytics"), guards)
	}

	if deps.LessonHandler != nil {
		courseGuards := base
		courseGuards.Limit = limit(ratelimit.Read)
		courseGuards = courseGuards.Then(csrf, authenticate)
		deps.LessonHandler.Register(api.Group("/courses"), courseGuards)
	}
}
