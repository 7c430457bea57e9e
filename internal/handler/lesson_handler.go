package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// LessonHandler serves course lesson endpoints.
type LessonHandler struct {
	service   service.LessonService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(service service.LessonService, validator *validator.Validate, logger zerolog.Logger) *LessonHandler {
	return &LessonHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "lesson_handler").Logger(),
	}
}

// Register attaches lesson routes under /courses.
func (h *LessonHandler) Register(router fiber.Router, guards Guards) {
	router.Get("/:id/lessons", guards.Read(models.PermLessonsRead, h.list)...)

	editors := guards.Then(middleware.RequireRole(models.RoleInstructor, models.RoleAdmin))
	router.Put("/:id/lessons/order", editors.Audited(models.PermLessonsUpdate, h.reorder)...)
}

func (h *LessonHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	lessons, err := h.service.List(c.UserContext(), courseID)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "lessons retrieved", lessons)
}

func (h *LessonHandler) reorder(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var payload dto.ReorderLessonsRequest
	if err := c.BodyParser(&payload); err != nil {
		return errInvalidPayload
	}
	if err := h.validator.Struct(payload); err != nil {
		return err
	}

	lessons, err := h.service.Reorder(c.UserContext(), middleware.Actor(c), courseID, payload)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, "lessons reordered", lessons)
}
