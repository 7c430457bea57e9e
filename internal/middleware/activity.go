package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-edu-api/internal/service"
)

var versionSegment = regexp.MustCompile(`^v\d+$`)

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type userEnvelope struct {
	User *struct {
		ID uint `json:"id"`
	} `json:"user"`
}

// Activity records the request on egress. It must sit directly in front of the handler so
// the matched route template is known; the entry is queued after the response is rendered.
func Activity(recorder service.ActivityRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		finalize(c, c.Next())

		entry, _ := observe(c, start)
		if id, ok := UserID(c); ok {
			entry.UserID = &id
		}
		recorder.Record(entry)
		return nil
	}
}

// AuthActivity records authentication events as auth.<event> or auth.<event>_failed. The
// actor is taken from data.user.id of a successful response only.
func AuthActivity(recorder service.ActivityRecorder, event string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		finalize(c, c.Next())

		entry, env := observe(c, start)
		entry.ResourceType = "auth"
		entry.Action = "auth." + event
		if !succeeded(c, env) {
			entry.Action += "_failed"
		} else {
			var data userEnvelope
			if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil && data.User != nil && data.User.ID > 0 {
				id := data.User.ID
				entry.UserID = &id
			}
		}
		recorder.Record(entry)
		return nil
	}
}

// PermissionActivity records permission changes with the target user, permission and outcome.
func PermissionActivity(recorder service.ActivityRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		finalize(c, c.Next())

		entry, env := observe(c, start)
		entry.ResourceType = "permissions"
		if id, ok := UserID(c); ok {
			entry.UserID = &id
		}

		var change struct {
			UserID     uint   `json:"user_id"`
			Permission string `json:"permission"`
			Granted    *bool  `json:"granted"`
		}
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &change) == nil && change.UserID > 0 {
			entry.Details["target_user_id"] = change.UserID
			entry.Details["permission"] = change.Permission
			entry.Details["granted"] = change.Granted
		}
		recorder.Record(entry)
		return nil
	}
}

// ActionName derives a stable action from a method and route template,
// e.g. GET /api/v1/admin/users/:id becomes get.admin.users.id.
func ActionName(method, route string) string {
	parts := append([]string{strings.ToLower(method)}, routeSegments(route)...)
	return strings.Join(parts, ".")
}

func routeSegments(route string) []string {
	raw := strings.Split(strings.Trim(route, "/"), "/")
	segments := make([]string, 0, len(raw))
	for idx, segment := range raw {
		if segment == "" {
			continue
		}
		if idx == 0 && segment == "api" {
			continue
		}
		if versionSegment.MatchString(segment) {
			continue
		}
		segment = strings.TrimLeft(segment, ":")
		segment = strings.TrimRight(segment, "?+")
		if segment == "*" {
			segment = "any"
		}
		segments = append(segments, strings.ToLower(segment))
	}
	return segments
}

func resourceType(route string) string {
	segments := routeSegments(route)
	if len(segments) == 0 {
		return ""
	}
	if segments[0] == "admin" && len(segments) > 1 {
		return segments[1]
	}
	return segments[0]
}

// observe snapshots the request. Values are copied because fiber reuses its buffers once the
// handler returns and the entry outlives the request.
func observe(c *fiber.Ctx, start time.Time) (service.ActivityEntry, envelope) {
	route := strings.Clone(routeTemplate(c))
	status := c.Response().StatusCode()

	var env envelope
	_ = json.Unmarshal(c.Response().Body(), &env)

	entry := service.ActivityEntry{
		Action:       ActionName(c.Method(), route),
		ResourceType: resourceType(route),
		IPAddress:    strings.Clone(c.IP()),
		UserAgent:    strings.Clone(c.Get(fiber.HeaderUserAgent)),
		CreatedAt:    time.Now().UTC(),
		Details: map[string]interface{}{
			"method":         strings.Clone(c.Method()),
			"path":           strings.Clone(c.Path()),
			"status":         status,
			"duration_ms":    time.Since(start).Milliseconds(),
			"success":        succeeded(c, env),
			"correlation_id": strings.Clone(GetCorrelationID(c)),
		},
	}
	if r := c.Route(); r != nil && len(r.Params) > 0 {
		entry.ResourceID = strings.Clone(c.Params(r.Params[0]))
	}
	return entry, env
}

func succeeded(c *fiber.Ctx, env envelope) bool {
	if env.Success != nil {
		return *env.Success
	}
	status := c.Response().StatusCode()
	return status >= fiber.StatusOK && status < fiber.StatusBadRequest
}
