// Package supervisor runs background workers under a suture supervision tree.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// Config tunes restart behaviour.
type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig returns the restart policy used by the API process.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree owns the root supervisor and its workers layer.
type Tree struct {
	root    *suture.Supervisor
	workers *suture.Supervisor
}

// New builds a tree whose lifecycle events are logged through zerolog.
func New(name string, cfg Config, logger zerolog.Logger) *Tree {
	log := logger.With().Str("component", "supervisor").Logger()
	hook := func(event suture.Event) {
		entry := log.Warn()
		if event.Type() == suture.EventTypeResume {
			entry = log.Info()
		}
		entry.Fields(event.Map()).Msg(event.String())
	}

	spec := suture.Spec{
		EventHook:        hook,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	root := suture.New(name, spec)
	workers := suture.New(name+"-workers", spec)
	root.Add(workers)

	return &Tree{root: root, workers: workers}
}

// Add registers a background worker.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.workers.Add(svc)
}

// ServeBackground starts the tree; the returned channel yields its exit error.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}
