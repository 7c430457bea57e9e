package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
)

// CSRF transport names.
const (
	CSRFHeader = "X-CSRF-Token"
	CSRFCookie = "csrf_session"
)

var (
	errCSRFMissing = apperror.Authorization(apperror.CodeCSRFMissing, "csrf token missing")
	errCSRFInvalid = apperror.Authorization(apperror.CodeCSRFInvalid, "csrf token invalid")
)

// CSRF implements the signed double-submit pattern: an HttpOnly cookie holds a random
// session value and clients echo HMAC(key, session) in a header.
type CSRF struct {
	key    []byte
	secure bool
	ttl    time.Duration
}

// NewCSRF builds the protector. secure marks the session cookie HTTPS-only.
func NewCSRF(secret string, secure bool) *CSRF {
	return &CSRF{key: []byte(secret), secure: secure, ttl: 12 * time.Hour}
}

// IssueToken returns the token for the caller's session, starting a new session when none exists.
func (p *CSRF) IssueToken(c *fiber.Ctx) string {
	session := c.Cookies(CSRFCookie)
	if session == "" {
		session = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     CSRFCookie,
			Value:    session,
			Path:     "/",
			Expires:  time.Now().Add(p.ttl),
			HTTPOnly: true,
			Secure:   p.secure,
			SameSite: fiber.CookieSameSiteStrictMode,
		})
	}
	return p.sign(session)
}

// Protect rejects state-changing requests without a matching token. Safe methods pass.
func (p *CSRF) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		token := c.Get(CSRFHeader)
		if token == "" {
			return errCSRFMissing
		}
		session := c.Cookies(CSRFCookie)
		if session == "" {
			return errCSRFInvalid
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(p.sign(session))) != 1 {
			return errCSRFInvalid
		}
		return c.Next()
	}
}

func (p *CSRF) sign(session string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(session))
	return hex.EncodeToString(mac.Sum(nil))
}
