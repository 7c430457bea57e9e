package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically sweeps a store. It runs as a supervised service.
type Janitor struct {
	store    Store
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitor constructs a janitor sweeping every interval.
func NewJanitor(store Store, interval time.Duration, logger zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "ratelimit_janitor").Logger(),
	}
}

// Serve implements suture.Service.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if dropped := j.store.Sweep(now); dropped > 0 {
				j.logger.Debug().Int("dropped", dropped).Msg("rate limit windows swept")
			}
		}
	}
}

func (j *Janitor) String() string {
	return "ratelimit-janitor"
}
