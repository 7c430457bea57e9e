package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/config"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// PingFunc reports whether a backing store is reachable.
type PingFunc func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// HealthCheck returns a handler that reports application health. Named stores that fail
// their ping within the store timeout turn the response into a 503.
func HealthCheck(cfg config.Config, stores map[string]PingFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(stores) > 0 {
			payload.Checks = make(map[string]string, len(stores))
			ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout(cfg))
			defer cancel()
			for name, ping := range stores {
				if err := ping(ctx); err != nil {
					payload.Checks[name] = "down"
					payload.Status = "degraded"
					continue
				}
				payload.Checks[name] = "up"
			}
		}

		if payload.Status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Error:   "service degraded",
				Code:    apperror.CodeUnavailable,
				Message: "service degraded",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}

func healthTimeout(cfg config.Config) time.Duration {
	if cfg.StoreTimeout > 0 {
		return cfg.StoreTimeout
	}
	return 2 * time.Second
}
