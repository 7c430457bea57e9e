package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// AdminPermissionHandler exposes the permission catalog, role defaults and user overrides.
type AdminPermissionHandler struct {
	service   service.PermissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminPermissionHandler constructs the handler.
func NewAdminPermissionHandler(service service.PermissionService, validator *validator.Validate, logger zerolog.Logger) *AdminPermissionHandler {
	return &AdminPermissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "admin_permission_handler").Logger(),
	}
}

// Register attaches permission admin routes to the router group.
func (h *AdminPermissionHandler) Register(router fiber.Router, guards Guards) {
	router.Get("", guards.Read(models.PermPermissionsRead, h.catalog)...)
	router.Get("/roles/:role", guards.Read(models.PermPermissionsRead, h.roleDefaults)...)
	router.Put("/roles/:role", guards.Audited(models.PermPermissionsManage, h.setRoleDefaults)...)
	router.Get("/users/:id", guards.Read(models.PermPermissionsRead, h.userPermissions)...)
	router.Post("/users/:id/grant", guards.PermissionChange(models.PermPermissionsManage, h.grant)...)
	router.Post("/users/:id/revoke", guards.PermissionChange(models.PermPermissionsManage, h.revoke)...)
	router.Delete("/users/:id/overrides/:permission", guards.PermissionChange(models.PermPermissionsManage, h.clear)...)
}

func (h *AdminPermissionHandler) catalog(c *fiber.Ctx) error {
	permissions, err := h.service.Catalog(c.UserContext())
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "permissions retrieved", permissions)
}

func (h *AdminPermissionHandler) roleDefaults(c *fiber.Ctx) error {
	resp, err := h.service.RoleDefaults(c.UserContext(), c.Params("role"))
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "role permissions retrieved", resp)
}

func (h *AdminPermissionHandler) setRoleDefaults(c *fiber.Ctx) error {
	var payload dto.SetRolePermissionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}
	if err := h.validator.Struct(payload); err != nil {
		return err
	}

	resp, err := h.service.SetRolePermissions(c.UserContext(), c.Params("role"), payload.Permissions)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "role permissions replaced", resp)
}

func (h *AdminPermissionHandler) userPermissions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.UserPermissions(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "user permissions retrieved", resp)
}

func (h *AdminPermissionHandler) grant(c *fiber.Ctx) error {
	return h.change(c, h.service.Grant, "permission granted")
}

func (h *AdminPermissionHandler) revoke(c *fiber.Ctx) error {
	return h.change(c, h.service.Revoke, "permission revoked")
}

type permissionMutation func(ctx context.Context, userID uint, name string, actorID uint) (dto.PermissionChangeResponse, error)

func (h *AdminPermissionHandler) change(c *fiber.Ctx, apply permissionMutation, message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var payload dto.PermissionChangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}
	if err := h.validator.Struct(payload); err != nil {
		return err
	}

	actorID, _ := middleware.UserID(c)
	resp, err := apply(c.UserContext(), id, payload.Permission, actorID)
	if err != nil {
		return err
	}
	requestLogger(h.logger, c).Info().
		Uint("user_id", id).
		Uint("actor_id", actorID).
		Str("permission", resp.Permission).
		Msg(message)
	return utils.SendSuccess(c, message, resp)
}

func (h *AdminPermissionHandler) clear(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.ClearOverride(c.UserContext(), id, c.Params("permission"))
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "permission override cleared", resp)
}
