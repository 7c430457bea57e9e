package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes the circuit breaker guarding the shared store.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// BreakerStore routes hits to a shared primary store and falls back to a local store while
// the breaker is open or the primary fails.
type BreakerStore struct {
	primary  Store
	fallback Store
	cb       *gobreaker.CircuitBreaker[Result]
	logger   zerolog.Logger
}

// NewBreakerStore wraps primary with a circuit breaker.
func NewBreakerStore(primary, fallback Store, settings BreakerSettings, logger zerolog.Logger) *BreakerStore {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 3
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	s := &BreakerStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "ratelimit_breaker").Logger(),
	}
	s.cb = gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "ratelimit-redis",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("rate limit store breaker changed state")
		},
	})
	return s
}

// Hit implements Store.
func (s *BreakerStore) Hit(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	res, err := s.cb.Execute(func() (Result, error) {
		return s.primary.Hit(ctx, key, limit, window)
	})
	if err == nil {
		return res, nil
	}
	s.logger.Debug().Err(err).Str("key", key).Msg("falling back to local rate limit store")
	return s.fallback.Hit(ctx, key, limit, window)
}

// Sweep implements Store.
func (s *BreakerStore) Sweep(now time.Time) int {
	return s.primary.Sweep(now) + s.fallback.Sweep(now)
}

// State reports the breaker state for health output.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}
