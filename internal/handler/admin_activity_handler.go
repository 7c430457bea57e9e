package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// AdminActivityHandler exposes activity log endpoints.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group. Reads are not audited so that
// browsing the trail does not grow it.
func (h *AdminActivityHandler) Register(router fiber.Router, guards Guards) {
	router.Get("", guards.Read(models.PermActivityRead, h.list)...)
	router.Get("/range", guards.Read(models.PermActivityRead, h.byDateRange)...)
	router.Get("/users/:id", guards.Read(models.PermActivityRead, h.byUser)...)
	router.Get("/actions/:action", guards.Read(models.PermActivityRead, h.byAction)...)
	router.Get("/resources/:type", guards.Read(models.PermActivityRead, h.byResource)...)
	router.Get("/resources/:type/:id", guards.Read(models.PermActivityRead, h.byResource)...)
	router.Post("/cleanup", guards.Sensitive(models.PermActivityManage, h.cleanup)...)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		return err
	}
	start, err := parseQueryTime(c, "start")
	if err != nil {
		return err
	}
	end, err := parseQueryTime(c, "end")
	if err != nil {
		return err
	}

	response, err := h.service.System(c.UserContext(), dto.ActivityListRequest{
		ActivityPageRequest: page,
		UserID:              userID,
		Action:              c.Query("action"),
		ResourceType:        c.Query("resource_type"),
		ResourceID:          c.Query("resource_id"),
		Start:               start,
		End:                 end,
	})
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "activity logs", response)
}

func (h *AdminActivityHandler) byDateRange(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}
	start, err := parseQueryTime(c, "start")
	if err != nil {
		return err
	}
	end, err := parseQueryTime(c, "end")
	if err != nil {
		return err
	}
	if start == nil || end == nil {
		return service.ErrInvalidArgument.WithMessage("start and end are required")
	}

	response, err := h.service.ByDateRange(c.UserContext(), *start, *end, page)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "activity logs", response)
}

func (h *AdminActivityHandler) byUser(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}

	response, err := h.service.ForUser(c.UserContext(), id, page)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "user activity", response)
}

func (h *AdminActivityHandler) byAction(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}

	response, err := h.service.ByAction(c.UserContext(), c.Params("action"), page)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "activity logs", response)
}

func (h *AdminActivityHandler) byResource(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}

	response, err := h.service.ByResource(c.UserContext(), c.Params("type"), c.Params("id"), page)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "resource activity", response)
}

func (h *AdminActivityHandler) cleanup(c *fiber.Ctx) error {
	var payload dto.ActivityCleanupRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}

	response, err := h.service.Cleanup(c.UserContext(), payload.DaysToKeep)
	if err != nil {
		return err
	}
	requestLogger(h.logger, c).Info().Int64("deleted", response.Deleted).Msg("activity retention applied")
	return utils.SendSuccess(c, "activity logs purged", response)
}
