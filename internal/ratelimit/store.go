// Package ratelimit implements sliding-window request accounting behind an injectable store.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one hit against a window.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store records hits per key inside a sliding window.
type Store interface {
	// Hit records one request for key unless the window already holds limit requests.
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
	// Sweep evicts expired entries and returns how many keys were dropped.
	Sweep(now time.Time) int
}

// Policy is a named limit applied to a class of routes.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Route classes.
var (
	Standard  = Policy{Name: "standard", Limit: 100, Window: 15 * time.Minute}
	Auth      = Policy{Name: "auth", Limit: 5, Window: 15 * time.Minute}
	Read      = Policy{Name: "read", Limit: 200, Window: 15 * time.Minute}
	Sensitive = Policy{Name: "sensitive", Limit: 3, Window: time.Hour}
)

func denied(limit int, oldest time.Time, window time.Duration, now time.Time) Result {
	reset := oldest.Add(window)
	retry := reset.Sub(now)
	if retry < time.Second {
		retry = time.Second
	}
	return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: reset, RetryAfter: retry}
}
