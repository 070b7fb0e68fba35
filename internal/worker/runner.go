// Package worker consumes the job-created and job-related-match queues and
// turns matches into stored notifications.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amishk599/jobboard/internal/model"
	"github.com/amishk599/jobboard/internal/queue"
)

// Source is a queue consumer in a consumer group.
type Source interface {
	EnsureGroup(ctx context.Context) error
	Receive(ctx context.Context) ([]queue.Delivery, error)
	Ack(ctx context.Context, id string) error
	// Pending counts entries delivered to the group but not yet acked.
	Pending(ctx context.Context) (int64, error)
}

// Handler processes one message payload. Returning an error wrapping
// model.ErrMalformedMessage drops the message; any other error leaves it
// pending for redelivery.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload []byte) error

func (f HandlerFunc) Handle(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// RunnerConfig tunes a Runner.
type RunnerConfig struct {
	// HandlerTimeout bounds the handling of a single message.
	HandlerTimeout time.Duration
	// ErrorPause is how long the loop waits after a failed receive.
	ErrorPause time.Duration
}

// Runner drives the receive, process, ack loop of one consumer.
type Runner struct {
	name    string
	source  Source
	handler Handler
	timeout time.Duration
	pause   time.Duration
	logger  *slog.Logger
}

// NewRunner returns a consumer loop. name identifies the consumer in logs.
func NewRunner(name string, source Source, handler Handler, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = 5 * time.Second
	}
	return &Runner{
		name:    name,
		source:  source,
		handler: handler,
		timeout: cfg.HandlerTimeout,
		pause:   cfg.ErrorPause,
		logger:  logger.With("consumer", name),
	}
}

// Run consumes messages until ctx is cancelled. It returns an error only if
// the consumer group cannot be set up.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.source.EnsureGroup(ctx); err != nil {
		return err
	}
	if pending, err := r.source.Pending(ctx); err != nil {
		r.logger.Warn("reading pending count failed", "error", err)
		r.logger.Info("consumer started")
	} else {
		r.logger.Info("consumer started", "pending", pending)
	}

	for {
		if ctx.Err() != nil {
			r.logger.Info("consumer stopped")
			return nil
		}

		batch, err := r.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("consumer stopped")
				return nil
			}
			r.logger.Error("receive failed", "error", err, "pause", r.pause)
			select {
			case <-ctx.Done():
			case <-time.After(r.pause):
			}
			continue
		}

		for _, d := range batch {
			r.process(ctx, d)
		}
	}
}

func (r *Runner) process(ctx context.Context, d queue.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.handler.Handle(hctx, d.Payload)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, model.ErrMalformedMessage):
		r.logger.Warn("dropping malformed message", "entry_id", d.ID, "stream", d.Stream, "error", err)
	default:
		r.logger.Error("message processing failed, left pending", "entry_id", d.ID, "stream", d.Stream, "error", err)
		return
	}

	if err := r.source.Ack(ctx, d.ID); err != nil {
		r.logger.Error("ack failed", "entry_id", d.ID, "error", err)
	}
}
