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

func TestAuthenticateExposesClaims(t *testing.T) {
	app := newTestApp()
	app.Get("/me", Authenticate(testTokens), func(c *fiber.Ctx) error {
		id, ok := UserID(c)
		require.True(t, ok)
		require.Equal(t, uint(2), id)
		require.Equal(t, models.RoleInstructor, UserRole(c))
		require.Equal(t, "instructor@example.com", c.Locals(LocalUserEmail))
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer instructor-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthenticateRejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
		code   string
	}{
		{name: "missing", header: "", code: apperror.CodeAuthMissing},
		{name: "wrong scheme", header: "Basic abc", code: apperror.CodeTokenInvalid},
		{name: "empty bearer", header: "Bearer ", code: apperror.CodeTokenInvalid},
		{name: "unknown token", header: "Bearer nope", code: apperror.CodeTokenInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handlerRan := false
			app := newTestApp()
			app.Get("/me", Authenticate(testTokens), func(c *fiber.Ctx) error {
				handlerRan = true
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			require.Equal(t, tc.code, decodeError(t, resp).Code)
			require.False(t, handlerRan)
		})
	}
}

func TestBearerSchemeIsCaseInsensitive(t *testing.T) {
	token, ok := bearerToken("bEaReR   admin-token")
	require.True(t, ok)
	require.Equal(t, "admin-token", token)
}
