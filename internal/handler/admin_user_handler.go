package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// AdminUserHandler wires identity management endpoints.
type AdminUserHandler struct {
	service service.AdminUserService
	logger  zerolog.Logger
}

// NewAdminUserHandler constructs the handler.
func NewAdminUserHandler(service service.AdminUserService, logger zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_user_handler").Logger(),
	}
}

// Register attaches user admin routes to the router group.
func (h *AdminUserHandler) Register(router fiber.Router, guards Guards) {
	router.Get("", guards.Audited(models.PermUsersRead, h.list)...)
	router.Get("/:id", guards.Audited(models.PermUsersRead, h.get)...)
	router.Post("", guards.Audited(models.PermUsersCreate, h.create)...)
	router.Put("/:id", guards.Audited(models.PermUsersUpdate, h.update)...)
	router.Delete("/:id", guards.Audited(models.PermUsersDelete, h.delete)...)
}

func (h *AdminUserHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return err
	}
	if page <= 0 {
		page = 1
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return err
	}
	active, err := parseQueryBool(c, "active")
	if err != nil {
		return err
	}

	response, err := h.service.List(c.UserContext(), dto.AdminUserListRequest{
		Page:     page,
		PageSize: clampPageSize(pageSize, 20, 100),
		Search:   c.Query("search"),
		Role:     c.Query("role"),
		Active:   active,
	})
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "users retrieved", response)
}

func (h *AdminUserHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *AdminUserHandler) create(c *fiber.Ctx) error {
	var payload dto.AdminUserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}

	user, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", user)
}

func (h *AdminUserHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var payload dto.AdminUserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}

	user, err := h.service.Update(c.UserContext(), id, payload, middleware.Actor(c))
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "user updated", user)
}

func (h *AdminUserHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id, middleware.Actor(c)); err != nil {
		return err
	}
	requestLogger(h.logger, c).Info().Uint("user_id", id).Msg("user deactivated")
	return utils.SendSuccess(c, "user deactivated", fiber.Map{"id": id})
}
