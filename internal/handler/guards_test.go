package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/handler"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/ratelimit"
)

type keyRecorder struct {
	ratelimit.Store
	mu   sync.Mutex
	keys []string
}

func (r *keyRecorder) Hit(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return r.Store.Hit(ctx, key, limit, window)
}

func TestGuardsRateLimitEachRouteSeparately(t *testing.T) {
	store := &keyRecorder{Store: ratelimit.NewMemoryStore()}
	guards := handler.Guards{
		Limit: middleware.RateLimit(middleware.RateLimitConfig{
			Store:  store,
			Policy: ratelimit.Policy{Name: "standard", Limit: 2, Window: time.Minute},
			Logger: zerolog.Nop(),
		}),
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	app := newTestApp()
	admin := app.Group("/api/v1/admin")
	admin.Get("/users", guards.Read("", ok)...)
	admin.Get("/students", guards.Read("", ok)...)

	get := func(target string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, get("/api/v1/admin/users"))
	require.Equal(t, fiber.StatusOK, get("/api/v1/admin/users"))
	require.Equal(t, fiber.StatusOK, get("/api/v1/admin/students"))
	require.Equal(t, fiber.StatusTooManyRequests, get("/api/v1/admin/users"))
	require.Equal(t, fiber.StatusOK, get("/api/v1/admin/students"))

	require.Equal(t, []string{
		"standard:/api/v1/admin/users:ip:0.0.0.0",
		"standard:/api/v1/admin/users:ip:0.0.0.0",
		"standard:/api/v1/admin/students:ip:0.0.0.0",
		"standard:/api/v1/admin/users:ip:0.0.0.0",
		"standard:/api/v1/admin/students:ip:0.0.0.0",
	}, store.keys)
}

func TestGuardsRunStagesInGateOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	stage := func(name string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return c.Next()
		}
	}

	guards := handler.Guards{
		Limit:          stage("limit"),
		SensitiveLimit: stage("sensitive"),
		Permission:     func(string) fiber.Handler { return stage("permission") },
		Activity:       stage("activity"),
	}.Then(stage("csrf"), stage("auth")).Then(stage("role"))

	app := newTestApp()
	app.Post("/cleanup", guards.Sensitive("activity.manage", func(c *fiber.Ctx) error {
		order = append(order, "handler")
		return c.SendStatus(fiber.StatusOK)
	})...)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/cleanup", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"limit", "sensitive", "csrf", "auth", "role", "permission", "activity", "handler"}, order)
}
