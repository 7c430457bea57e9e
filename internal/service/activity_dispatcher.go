package service

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-edu-api/internal/dto"
	"github.com/noah-isme/gema-edu-api/internal/models"
	"github.com/noah-isme/gema-edu-api/internal/observability"
	"github.com/noah-isme/gema-edu-api/internal/repository"
)

// ActivityPublisher fans persisted entries out to compliance exporters. *nats.Conn satisfies it.
type ActivityPublisher interface {
	Publish(subject string, data []byte) error
}

// DispatcherConfig tunes the activity workers.
type DispatcherConfig struct {
	Workers      int
	Subject      string
	WriteTimeout time.Duration
}

// ActivityDispatcher drains the activity queue into the store. It runs as a supervised service.
type ActivityDispatcher struct {
	queue     *ActivityQueue
	repo      repository.ActivityLogRepository
	publisher ActivityPublisher
	cfg       DispatcherConfig
	logger    zerolog.Logger
}

// NewActivityDispatcher constructs the dispatcher. publisher may be nil.
func NewActivityDispatcher(queue *ActivityQueue, repo repository.ActivityLogRepository, publisher ActivityPublisher, cfg DispatcherConfig, logger zerolog.Logger) *ActivityDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.Subject == "" {
		cfg.Subject = "gema.activity"
	}
	return &ActivityDispatcher{
		queue:     queue,
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "activity_dispatcher").Logger(),
	}
}

// Serve runs the workers until ctx is cancelled, then drains what is already queued.
func (d *ActivityDispatcher) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case entry := <-d.queue.entries:
					d.persist(ctx, entry)
				}
			}
		}()
	}
	wg.Wait()

	drained := 0
	for {
		select {
		case entry := <-d.queue.entries:
			d.persist(ctx, entry)
			drained++
		default:
			if drained > 0 {
				d.logger.Info().Int("entries", drained).Msg("activity queue drained on shutdown")
			}
			return ctx.Err()
		}
	}
}

func (d *ActivityDispatcher) String() string {
	return "activity-dispatcher"
}

func (d *ActivityDispatcher) persist(ctx context.Context, entry ActivityEntry) {
	record := models.ActivityLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		UserAgent:    truncate(entry.UserAgent, 512),
		Details:      sanitizeDetails(entry.Details),
		CreatedAt:    entry.CreatedAt.UTC(),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.WriteTimeout)
	defer cancel()
	if err := d.repo.Create(writeCtx, &record); err != nil {
		observability.ActivityPersisted().WithLabelValues("error").Inc()
		d.logger.Error().Err(err).Str("action", record.Action).Msg("failed to persist activity log")
		return
	}
	observability.ActivityPersisted().WithLabelValues("ok").Inc()

	if d.publisher == nil {
		return
	}
	payload, err := json.Marshal(dto.NewActivityLogResponse(record))
	if err != nil {
		d.logger.Error().Err(err).Uint("activity_id", record.ID).Msg("failed to encode activity event")
		return
	}
	if err := d.publisher.Publish(d.cfg.Subject, payload); err != nil {
		d.logger.Warn().Err(err).Uint("activity_id", record.ID).Msg("failed to publish activity event")
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
