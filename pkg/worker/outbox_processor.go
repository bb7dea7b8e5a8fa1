package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/messaging"
	"github.com/jwalitptl/clinic-onboarding/pkg/metrics"
)

const maxRetryDelay = time.Hour

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("BatchSize must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("PollInterval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("RetryAttempts must be greater than 0")
	case c.RetryDelay <= 0:
		return errors.New("RetryDelay must be greater than 0")
	}
	return nil
}

// OutboxProcessor publishes domain events written alongside state changes.
// Each poll claims a batch under row locks, publishes each event once and
// schedules failures for a later poll with exponential backoff.
type OutboxProcessor struct {
	store     repository.Store
	publisher messaging.Publisher
	config    OutboxProcessorConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewOutboxProcessor(
	store repository.Store,
	publisher messaging.Publisher,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &OutboxProcessor{
		store:     store,
		publisher: publisher,
		config:    config,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor", "batch_size", p.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error(err, "failed to process events")
			}
		}
	}
}

// ProcessBatch handles one batch and reports how many events were published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	published := 0
	err := p.store.WithTx(ctx, func(tx repository.Tx) error {
		events, err := tx.Outbox().ClaimPending(ctx, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to claim pending events: %w", err)
		}

		for _, event := range events {
			if err := p.processEvent(ctx, tx.Outbox(), event); err != nil {
				return err
			}
			if event.Status == model.OutboxStatusProcessed {
				published++
			}
		}
		return nil
	})
	return published, err
}

// processEvent only returns an error when the status update itself fails.
func (p *OutboxProcessor) processEvent(ctx context.Context, repo repository.OutboxRepository, event *model.OutboxEvent) error {
	start := p.now()
	err := p.publisher.Publish(ctx, messaging.Envelope{
		ID:          event.ID,
		Type:        event.EventType,
		AggregateID: event.AggregateID,
		Payload:     event.Payload,
		OccurredAt:  event.CreatedAt,
	})
	if err == nil {
		event.Status = model.OutboxStatusProcessed
		p.metrics.OutboxProcessed(p.now().Sub(start))
		return repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil)
	}

	errStr := err.Error()
	attempt := event.RetryCount + 1
	if attempt >= p.config.RetryAttempts {
		event.Status = model.OutboxStatusFailed
		p.metrics.OutboxFailed(event.EventType, false)
		p.logger.Error(err, "giving up on event",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempts", attempt)
		return repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil)
	}

	retryAt := p.now().Add(p.backoff(attempt)).UTC()
	p.metrics.OutboxFailed(event.EventType, true)
	p.logger.Warn("event publish failed, will retry",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"attempt", attempt,
		"retry_at", retryAt.Format(time.RFC3339))
	return repo.UpdateStatus(ctx, event.ID, model.OutboxStatusPending, &errStr, &retryAt)
}

func (p *OutboxProcessor) backoff(attempt int) time.Duration {
	d := p.config.RetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}
