package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// SeedHandler exposes the access control re-sync used after catalog upgrades.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router, guards Guards) {
	router.Post("/sync", guards.Sensitive(models.PermPermissionsManage, h.sync)...)
}

func (h *SeedHandler) sync(c *fiber.Ctx) error {
	if err := h.service.SeedAccessControl(c.UserContext()); err != nil {
		return err
	}

	requestLogger(h.logger, c).Info().Int("catalog", len(models.PermissionCatalog)).Msg("access control synced")
	return utils.SendSuccess(c, "access control synced", fiber.Map{"catalog": len(models.PermissionCatalog)})
}
