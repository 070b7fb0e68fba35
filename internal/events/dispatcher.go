package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobboard/internal/retry"
)

// Dispatcher publishes outbox events whose immediate publication failed.
type Dispatcher struct {
	outbox    Outbox
	publisher *Publisher
	retrier   *retry.Retrier
	grace     time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// DispatcherConfig tunes a Dispatcher.
type DispatcherConfig struct {
	// Grace skips events younger than this, leaving them to the immediate publish.
	Grace     time.Duration
	BatchSize int
}

// NewDispatcher returns a dispatcher that publishes through publisher.
func NewDispatcher(outbox Outbox, publisher *Publisher, retrier *retry.Retrier, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Grace < 0 {
		cfg.Grace = 0
	}
	return &Dispatcher{
		outbox:    outbox,
		publisher: publisher,
		retrier:   retrier,
		grace:     cfg.Grace,
		batchSize: cfg.BatchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// DispatchPending publishes one batch of pending events in creation order and
// returns how many were dispatched. A failed event is recorded and left
// pending for the next run; the rest of the batch still runs.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	cutoff := d.now().UTC().Add(-d.grace)
	pending, err := d.outbox.Pending(ctx, cutoff, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing pending events: %w", err)
	}
	if len(pending) == 0 {
		d.logger.Debug("no pending events")
		return 0, nil
	}

	dispatched := 0
	for _, ev := range pending {
		err := d.retrier.Do(ctx, "publish "+ev.Topic, func(ctx context.Context) error {
			return d.publisher.PublishEvent(ctx, ev)
		})
		if err != nil {
			if ctx.Err() != nil {
				return dispatched, ctx.Err()
			}
			d.logger.Error("event dispatch failed",
				"event_id", ev.ID,
				"topic", ev.Topic,
				"attempts", ev.Attempts+1,
				"error", err,
			)
			if mErr := d.outbox.MarkFailed(ctx, ev.ID, err); mErr != nil {
				d.logger.Error("recording dispatch failure", "event_id", ev.ID, "error", mErr)
			}
			continue
		}
		dispatched++
	}

	d.logger.Info("outbox dispatched", "dispatched", dispatched, "pending", len(pending))
	return dispatched, nil
}
