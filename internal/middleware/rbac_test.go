package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/models"
)

func roleRequest(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRequireRoleAllowsAuthorizedRoles(t *testing.T) {
	app := newTestApp()
	app.Get("/admin", Authenticate(testTokens), RequireRole(models.RoleAdmin, models.RoleInstructor), okHandler)

	require.Equal(t, fiber.StatusOK, roleRequest(t, app, "admin-token").StatusCode)
	require.Equal(t, fiber.StatusOK, roleRequest(t, app, "instructor-token").StatusCode)
}

func TestRequireRoleRejectsUnauthorizedRoles(t *testing.T) {
	app := newTestApp()
	app.Get("/admin", Authenticate(testTokens), RequireRole(models.RoleAdmin), okHandler)

	resp := roleRequest(t, app, "student-token")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, apperror.CodeRoleForbidden, decodeError(t, resp).Code)
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	app := newTestApp()
	app.Get("/admin", RequireRole(models.RoleAdmin), okHandler)

	resp := roleRequest(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, apperror.CodeAuthMissing, decodeError(t, resp).Code)
}

func TestRequireMinimumRole(t *testing.T) {
	app := newTestApp()
	app.Get("/admin", Authenticate(testTokens), RequireMinimumRole(models.RoleInstructor), okHandler)

	require.Equal(t, fiber.StatusOK, roleRequest(t, app, "admin-token").StatusCode)
	require.Equal(t, fiber.StatusOK, roleRequest(t, app, "instructor-token").StatusCode)
	require.Equal(t, fiber.StatusForbidden, roleRequest(t, app, "student-token").StatusCode)
}
