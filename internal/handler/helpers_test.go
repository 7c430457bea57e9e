package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/handler"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zerolog.Nop())})
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// openGuards skips the permission and audit stages so handlers can be tested alone.
var openGuards = handler.Guards{}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return req
}

// asUser fakes the authentication stage for handler tests.
func asUser(id uint, role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, id)
		c.Locals(middleware.LocalUserRole, role)
		return c.Next()
	}
}

type staticResolver map[uint][]string

func (r staticResolver) Effective(_ context.Context, userID uint) (service.PermissionSet, error) {
	names, ok := r[userID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	set := make(service.PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

type captureActivity struct {
	mu      sync.Mutex
	entries []service.ActivityEntry
}

func (r *captureActivity) Record(entry service.ActivityEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return true
}

func (r *captureActivity) all() []service.ActivityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.ActivityEntry(nil), r.entries...)
}
