package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/service"
)

var errInvalidPayload = service.ErrInvalidArgument.WithMessage("invalid payload")

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, service.ErrInvalidArgument.WithMessage("invalid " + strings.ReplaceAll(key, "_", " "))
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return nil, service.ErrInvalidArgument.WithMessage("invalid " + strings.ReplaceAll(key, "_", " "))
	}
	id := uint(parsed)
	return &id, nil
}

func parseQueryBool(c *fiber.Ctx, key string) (*bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, service.ErrInvalidArgument.WithMessage("invalid " + strings.ReplaceAll(key, "_", " "))
	}
	return &parsed, nil
}

// parseQueryTime accepts RFC 3339 timestamps or plain dates.
func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}
	return nil, service.ErrInvalidArgument.WithMessage("invalid " + key + ", expected RFC 3339 or YYYY-MM-DD")
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, service.ErrInvalidArgument.WithMessage("invalid identifier")
	}
	return uint(parsed), nil
}

// pageFromQuery reads page, page_size, sort and order. Bounds are applied by the services.
func pageFromQuery(c *fiber.Ctx) (dto.ActivityPageRequest, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.ActivityPageRequest{}, err
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.ActivityPageRequest{}, err
	}
	return dto.ActivityPageRequest{
		Page:     page,
		PageSize: pageSize,
		Sort:     c.Query("sort"),
		Order:    c.Query("order"),
	}, nil
}

func clampPageSize(pageSize, fallback, limit int) int {
	switch {
	case pageSize <= 0:
		return fallback
	case pageSize > limit:
		return limit
	default:
		return pageSize
	}
}

func clientInfo(c *fiber.Ctx) service.ClientInfo {
	return service.ClientInfo{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}
