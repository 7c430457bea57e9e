package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/observability"
	"github.com/noah-isme/gema-edu-api/internal/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitConfig wires a policy to a window store.
type RateLimitConfig struct {
	Store  ratelimit.Store
	Policy ratelimit.Policy
	// Verifier, when set, lets authenticated callers be keyed by user id instead of address.
	Verifier TokenVerifier
	Logger   zerolog.Logger
}

// RateLimit enforces cfg.Policy per route and caller. Store failures let the request through.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	log := cfg.Logger.With().Str("component", "rate_limit").Str("policy", cfg.Policy.Name).Logger()

	return func(c *fiber.Ctx) error {
		key := rateLimitKey(c, cfg)

		result, err := cfg.Store.Hit(c.UserContext(), key, cfg.Policy.Limit, cfg.Policy.Window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, allowing request")
			return c.Next()
		}

		c.Set(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
		c.Set(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
		c.Set(HeaderRateLimitReset, strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			observability.RateLimited().WithLabelValues(cfg.Policy.Name).Inc()
			return apperror.RateLimited(apperror.CodeRateLimited, result.RetryAfter)
		}
		return c.Next()
	}
}

func rateLimitKey(c *fiber.Ctx, cfg RateLimitConfig) string {
	var b strings.Builder
	b.WriteString(cfg.Policy.Name)
	b.WriteByte(':')
	b.WriteString(routeTemplate(c))
	b.WriteByte(':')

	if id, ok := UserID(c); ok {
		b.WriteString("user:")
		b.WriteString(strconv.FormatUint(uint64(id), 10))
		return b.String()
	}
	if cfg.Verifier != nil {
		if token, ok := bearerToken(strings.TrimSpace(c.Get(fiber.HeaderAuthorization))); ok {
			if claims, err := cfg.Verifier.VerifyAccess(token); err == nil {
				b.WriteString("user:")
				b.WriteString(strconv.FormatUint(uint64(claims.UserID), 10))
				return b.String()
			}
		}
	}

	b.WriteString("ip:")
	b.WriteString(c.IP())
	return b.String()
}
