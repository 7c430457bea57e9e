package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// AdminAnalyticsHandler exposes audit analytics for administrators.
type AdminAnalyticsHandler struct {
	service service.AdminAnalyticsService
	logger  zerolog.Logger
}

// NewAdminAnalyticsHandler constructs the handler.
func NewAdminAnalyticsHandler(service service.AdminAnalyticsService, logger zerolog.Logger) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_analytics_handler").Logger(),
	}
}

// Register attaches analytics routes to the router group.
func (h *AdminAnalyticsHandler) Register(router fiber.Router, guards Guards) {
	router.Get("/audit", guards.Read(models.PermActivityRead, h.audit)...)
}

func (h *AdminAnalyticsHandler) audit(c *fiber.Ctx) error {
	hours, err := parseQueryInt(c, "hours")
	if err != nil {
		return err
	}

	summary, err := h.service.AuditSummary(c.UserContext(), hours)
	if err != nil {
		return err
	}

	if summary.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}
	return utils.SendSuccess(c, "audit summary", summary)
}
