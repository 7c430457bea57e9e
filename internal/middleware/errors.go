package middleware

import (
	"errors"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
	"github.com/noah-isme/gema-edu-api/internal/utils"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ErrorHandler renders every error as the shared envelope. Internal details are logged, never sent.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	log := logger.With().Str("component", "http_errors").Logger()

	return func(c *fiber.Ctx, err error) error {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make([]FieldError, 0, len(validationErrs))
			for _, fieldErr := range validationErrs {
				fields = append(fields, FieldError{Field: fieldErr.Field(), Rule: fieldErr.Tag()})
			}
			return c.Status(fiber.StatusBadRequest).JSON(utils.APIResponse{
				Success: false,
				Error:   "validation failed",
				Code:    apperror.CodeValidationFailed,
				Message: "validation failed",
				Details: fields,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return utils.SendErrorCode(c, fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message)
		}

		appErr := apperror.From(err)
		if appErr.RetryAfter > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(appErr.RetryAfter.Seconds()))))
		}
		if appErr.Kind == apperror.KindInternal || appErr.Kind == apperror.KindUnavailable {
			log.Error().
				Err(err).
				Str("correlation_id", GetCorrelationID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("request failed")
		}
		return utils.SendErrorCode(c, appErr.Status(), appErr.Code, appErr.Message)
	}
}

// finalize renders a pending chain error so post-handler stages observe the final status.
func finalize(c *fiber.Ctx, err error) {
	if err == nil {
		return
	}
	if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
		_ = c.SendStatus(fiber.StatusInternalServerError)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperror.CodeValidationFailed
	case fiber.StatusUnauthorized:
		return apperror.CodeAuthMissing
	case fiber.StatusForbidden:
		return apperror.CodePermissionDenied
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return apperror.CodeNotFound
	case fiber.StatusTooManyRequests:
		return apperror.CodeRateLimited
	default:
		if status >= fiber.StatusInternalServerError {
			return apperror.CodeInternal
		}
		return ""
	}
}
