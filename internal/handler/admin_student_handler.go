package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// AdminStudentHandler wires admin student endpoints.
type AdminStudentHandler struct {
	service service.AdminStudentService
	logger  zerolog.Logger
}

// NewAdminStudentHandler constructs the handler.
func NewAdminStudentHandler(service service.AdminStudentService, logger zerolog.Logger) *AdminStudentHandler {
	return &AdminStudentHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_student_handler").Logger(),
	}
}

// Register attaches student admin routes to the router group.
func (h *AdminStudentHandler) Register(router fiber.Router, guards Guards) {
	router.Get("", guards.Audited(models.PermStudentsRead, h.list)...)
	router.Get("/:id", guards.Audited(models.PermStudentsRead, h.get)...)
	router.Post("", guards.Audited(models.PermStudentsCreate, h.create)...)
	router.Put("/:id", guards.Audited(models.PermStudentsUpdate, h.update)...)
	router.Patch("/:id", guards.Audited(models.PermStudentsUpdate, h.update)...)
	router.Delete("/:id", guards.Audited(models.PermStudentsDelete, h.delete)...)
}

func (h *AdminStudentHandler) list(c *fiber.Ctx) error {
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

	req := dto.AdminStudentListRequest{
		Page:     page,
		PageSize: clampPageSize(pageSize, 20, 100),
		Search:   c.Query("search"),
		Class:    c.Query("class"),
		Status:   c.Query("status"),
		Sort:     c.Query("sort"),
	}

	response, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "students retrieved", response)
}

func (h *AdminStudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	student, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *AdminStudentHandler) create(c *fiber.Ctx) error {
	var payload dto.AdminStudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}

	student, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *AdminStudentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var payload dto.AdminStudentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}

	student, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *AdminStudentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	requestLogger(h.logger, c).Info().Uint("student_id", id).Msg("student archived")
	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}
