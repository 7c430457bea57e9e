package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/observability"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

// Login failure reasons persisted on LoginAttempt rows.
const (
	ReasonUnknownEmail    = "unknown_email"
	ReasonInvalidPassword = "invalid_password"
	ReasonInactive        = "inactive"
	ReasonInvalidOTP      = "invalid_otp"
	ReasonBlocked         = "blocked"
	ReasonInvalidRequest  = "invalid_request"
)

// LoginGuardConfig tunes the brute-force window.
type LoginGuardConfig struct {
	Window       time.Duration
	MaxFailures  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultLoginGuardConfig blocks after 5 failures inside 15 minutes.
func DefaultLoginGuardConfig() LoginGuardConfig {
	return LoginGuardConfig{Window: 15 * time.Minute, MaxFailures: 5, ReadTimeout: 3 * time.Second, WriteTimeout: 5 * time.Second}
}

// LoginGuard counts failed logins per email and per source IP.
type LoginGuard interface {
	RecordAttempt(ctx context.Context, email, ip string, success bool, reason string)
	IsBlocked(ctx context.Context, email, ip string) bool
	Prune(ctx context.Context, days int) (int64, error)
	Window() time.Duration
	Wait()
}

type loginGuard struct {
	repo   repository.LoginAttemptRepository
	cfg    LoginGuardConfig
	now    func() time.Time
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewLoginGuard constructs the brute-force guard.
func NewLoginGuard(repo repository.LoginAttemptRepository, cfg LoginGuardConfig, logger zerolog.Logger) LoginGuard {
	defaults := DefaultLoginGuardConfig()
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaults.MaxFailures
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	return &loginGuard{
		repo:   repo,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With().Str("component", "login_guard").Logger(),
	}
}

// RecordAttempt appends a LoginAttempt row in the background. Failures are logged only.
func (g *loginGuard) RecordAttempt(ctx context.Context, email, ip string, success bool, reason string) {
	attempt := models.LoginAttempt{
		Email:         truncate(normalizeEmail(email), 255),
		IPAddress:     ip,
		Success:       success,
		FailureReason: reason,
		AttemptedAt:   g.now().UTC(),
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.WriteTimeout)
		defer cancel()
		if err := g.repo.Create(writeCtx, &attempt); err != nil {
			g.logger.Error().Err(err).Str("email", attempt.Email).Str("ip", ip).Msg("failed to record login attempt")
		}
	}()
}

// IsBlocked fails open: a store error or a count slower than ReadTimeout never locks anyone out.
func (g *loginGuard) IsBlocked(ctx context.Context, email, ip string) bool {
	readCtx, cancel := context.WithTimeout(ctx, g.cfg.ReadTimeout)
	defer cancel()

	since := g.now().UTC().Add(-g.cfg.Window)
	failures, err := g.repo.CountFailuresSince(readCtx, normalizeEmail(email), ip, since)
	if err != nil {
		observability.LoginGuardFailOpens().Inc()
		g.logger.Error().Err(err).
			Str("ip", ip).
			Str("correlation_id", observability.CorrelationID(ctx)).
			Msg("login guard store unavailable, allowing attempt")
		return false
	}
	return failures >= int64(g.cfg.MaxFailures)
}

// Prune deletes attempts older than the given number of days. The retention horizon is
// never allowed to cut into the active window.
func (g *loginGuard) Prune(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, ErrInvalidArgument.WithMessage("days to keep must be at least 1")
	}
	cutoff := g.now().UTC().AddDate(0, 0, -days)
	if windowStart := g.now().UTC().Add(-g.cfg.Window); cutoff.After(windowStart) {
		cutoff = windowStart
	}

	deleted, err := g.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	g.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("pruned login attempts")
	return deleted, nil
}

func (g *loginGuard) Window() time.Duration {
	return g.cfg.Window
}

// Wait blocks until queued attempt writes have finished.
func (g *loginGuard) Wait() {
	g.wg.Wait()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
