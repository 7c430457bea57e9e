package dto

import "time"

// ActionCountResponse is one entry of the most frequent actions.
type ActionCountResponse struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// FailureSourceResponse reports failed logins from one address.
type FailureSourceResponse struct {
	IPAddress string `json:"ip_address"`
	Failures  int64  `json:"failures"`
}

// LoginSummary counts login outcomes in the window.
type LoginSummary struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// AuditSummaryResponse aggregates the audit trail for the admin dashboard.
type AuditSummaryResponse struct {
	WindowHours       int                     `json:"window_hours"`
	TotalEvents       int64                   `json:"total_events"`
	ActiveUsers       int64                   `json:"active_users"`
	TopActions        []ActionCountResponse   `json:"top_actions"`
	Logins            LoginSummary            `json:"logins"`
	TopFailureSources []FailureSourceResponse `json:"top_failure_sources"`
	GeneratedAt       time.Time               `json:"generated_at"`
	CacheHit          bool                    `json:"cache_hit"`
}
