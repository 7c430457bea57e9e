package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/ratelimit"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, int, time.Duration) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("store down")
}

func (failingStore) Sweep(time.Time) int { return 0 }

func limitedApp(store ratelimit.Store, policy ratelimit.Policy) *fiber.App {
	app := newTestApp()
	app.Post("/auth/login", RateLimit(RateLimitConfig{
		Store:    store,
		Policy:   policy,
		Verifier: testTokens,
		Logger:   zerolog.Nop(),
	}), okHandler)
	return app
}

func hit(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRateLimitRejectsAfterLimit(t *testing.T) {
	app := limitedApp(ratelimit.NewMemoryStore(), ratelimit.Auth)

	for i := 0; i < ratelimit.Auth.Limit; i++ {
		resp := hit(t, app, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Equal(t, strconv.Itoa(ratelimit.Auth.Limit), resp.Header.Get(HeaderRateLimitLimit))
		require.Equal(t, strconv.Itoa(ratelimit.Auth.Limit-i-1), resp.Header.Get(HeaderRateLimitRemaining))
		require.NotEmpty(t, resp.Header.Get(HeaderRateLimitReset))
	}

	resp := hit(t, app, "")
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	retry, err := strconv.Atoi(resp.Header.Get(fiber.HeaderRetryAfter))
	require.NoError(t, err)
	require.Greater(t, retry, 0)
	require.Equal(t, apperror.CodeRateLimited, decodeError(t, resp).Code)
}

func TestRateLimitKeysAuthenticatedCallersByUser(t *testing.T) {
	policy := ratelimit.Policy{Name: "tiny", Limit: 1, Window: time.Minute}
	app := limitedApp(ratelimit.NewMemoryStore(), policy)

	require.Equal(t, fiber.StatusOK, hit(t, app, "admin-token").StatusCode)
	require.Equal(t, fiber.StatusTooManyRequests, hit(t, app, "admin-token").StatusCode)

	// Same address, different identity.
	require.Equal(t, fiber.StatusOK, hit(t, app, "student-token").StatusCode)
	require.Equal(t, fiber.StatusOK, hit(t, app, "").StatusCode)
	require.Equal(t, fiber.StatusTooManyRequests, hit(t, app, "").StatusCode)
}

func TestRateLimitFailsOpen(t *testing.T) {
	app := limitedApp(failingStore{}, ratelimit.Policy{Name: "tiny", Limit: 1, Window: time.Minute})

	for i := 0; i < 3; i++ {
		resp := hit(t, app, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Empty(t, resp.Header.Get(HeaderRateLimitLimit))
	}
}
