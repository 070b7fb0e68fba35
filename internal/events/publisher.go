// Package events publishes domain events to the queue. Events written through
// the transactional outbox are published once immediately and, if that fails,
// again by the Dispatcher until the broker accepts them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobboard/internal/model"
)

// Streams appends encoded payloads to a named stream.
type Streams interface {
	PublishRaw(ctx context.Context, stream string, body []byte) (string, error)
}

// Outbox settles recorded events.
type Outbox interface {
	Pending(ctx context.Context, olderThan time.Time, limit int) ([]model.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// NewJobCreatedEvent builds the job-created event for job. Event ids are
// UUIDv7 so they sort by creation time.
func NewJobCreatedEvent(job model.JobPosting, at time.Time) (model.OutboxEvent, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.OutboxEvent{}, fmt.Errorf("generating event id: %w", err)
	}
	body, err := json.Marshal(job)
	if err != nil {
		return model.OutboxEvent{}, fmt.Errorf("encoding job %d: %w", job.ID, err)
	}
	return model.OutboxEvent{
		ID:        id.String(),
		Topic:     model.TopicJobCreated,
		Payload:   body,
		CreatedAt: at.UTC(),
	}, nil
}

// Publisher writes events and matches to their streams.
type Publisher struct {
	streams Streams
	outbox  Outbox
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher returns a publisher. outbox may be nil when no event passes
// through the outbox, e.g. in the scheduler process.
func NewPublisher(streams Streams, outbox Outbox, logger *slog.Logger) *Publisher {
	return &Publisher{
		streams: streams,
		outbox:  outbox,
		logger:  logger,
		now:     time.Now,
	}
}

// PublishEvent publishes ev and marks it dispatched. An event that reached
// the broker but could not be settled is published again by the dispatcher.
func (p *Publisher) PublishEvent(ctx context.Context, ev model.OutboxEvent) error {
	entryID, err := p.streams.PublishRaw(ctx, ev.Topic, ev.Payload)
	if err != nil {
		return fmt.Errorf("publishing event %s: %w", ev.ID, err)
	}
	p.logger.Debug("event published", "event_id", ev.ID, "topic", ev.Topic, "entry_id", entryID)

	if p.outbox == nil {
		return nil
	}
	if err := p.outbox.MarkDispatched(ctx, ev.ID, p.now().UTC()); err != nil {
		p.logger.Warn("event published but not settled", "event_id", ev.ID, "error", err)
	}
	return nil
}

// PublishRelatedMatch publishes a related-job match.
func (p *Publisher) PublishRelatedMatch(ctx context.Context, match model.RelatedJobMatch) error {
	body, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("encoding related match: %w", err)
	}
	if _, err := p.streams.PublishRaw(ctx, model.TopicJobRelatedMatch, body); err != nil {
		return fmt.Errorf("publishing related match for user %d: %w", match.UserID, err)
	}
	return nil
}
