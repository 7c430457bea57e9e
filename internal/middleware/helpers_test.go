package middleware

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop())})
}

type stubVerifier map[string]service.Claims

func (v stubVerifier) VerifyAccess(token string) (service.Claims, error) {
	claims, ok := v[token]
	if !ok {
		return service.Claims{}, service.ErrTokenMalformed
	}
	return claims, nil
}

var testTokens = stubVerifier{
	"student-token":    {UserID: 3, Email: "student@example.com", Role: models.RoleStudent},
	"instructor-token": {UserID: 2, Email: "instructor@example.com", Role: models.RoleInstructor},
	"admin-token":      {UserID: 1, Email: "admin@example.com", Role: models.RoleAdmin},
}

type stubResolver struct {
	mu    sync.Mutex
	sets  map[uint][]string
	calls int
}

func (r *stubResolver) Effective(_ context.Context, userID uint) (service.PermissionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	names, ok := r.sets[userID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	set := make(service.PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []service.ActivityEntry
}

func (r *captureRecorder) Record(entry service.ActivityEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return true
}

func (r *captureRecorder) all() []service.ActivityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.ActivityEntry(nil), r.entries...)
}

type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	require.False(t, body.Success)
	return body
}

func okHandler(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}
