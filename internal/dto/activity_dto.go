package dto

import (
	"time"

	"github.com/noah-isme/gema-edu-api/internal/models"
)

// ActivityPageRequest carries pagination and ordering for activity reads.
type ActivityPageRequest struct {
	Page     int
	PageSize int
	Sort     string
	Order    string
}

// ActivityListRequest defines filters for the system activity view.
type ActivityListRequest struct {
	ActivityPageRequest
	UserID       *uint
	Action       string
	ResourceType string
	ResourceID   string
	Start        *time.Time
	End          *time.Time
}

// ActivityLogResponse serializes one audit record. Field names are a stable export contract.
type ActivityLogResponse struct {
	ID           uint                   `json:"id"`
	UserID       *uint                  `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	Details      map[string]interface{} `json:"details"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityListResponse wraps a page of activity logs.
type ActivityListResponse struct {
	Items      []ActivityLogResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}

// ActivityCleanupRequest carries the retention horizon.
type ActivityCleanupRequest struct {
	DaysToKeep int `json:"days_to_keep"`
}

// ActivityCleanupResponse reports how many rows a cleanup removed.
type ActivityCleanupResponse struct {
	DaysToKeep int       `json:"days_to_keep"`
	Cutoff     time.Time `json:"cutoff"`
	Deleted    int64     `json:"deleted"`
}

// NewActivityLogResponse converts a model into a DTO.
func NewActivityLogResponse(entry models.ActivityLog) ActivityLogResponse {
	details := map[string]interface{}(entry.Details)
	if details == nil {
		details = map[string]interface{}{}
	}
	return ActivityLogResponse{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Details:      details,
		CreatedAt:    entry.CreatedAt,
	}
}
