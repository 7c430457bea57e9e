package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
)

const maskedValue = "***"

var (
	sensitiveKeys = []string{"password", "token", "secret", "otp", "authorization", "cookie"}
	detailPolicy  = bluemonday.StrictPolicy()
)

func sanitizeDetails(details map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range details {
		if isSensitiveKey(key) {
			sanitized[key] = maskedValue
			continue
		}
		sanitized[key] = sanitizeValue(value)
	}
	return sanitized
}

func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return detailPolicy.Sanitize(v)
	case map[string]interface{}:
		return map[string]interface{}(sanitizeDetails(v))
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveKeys {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
