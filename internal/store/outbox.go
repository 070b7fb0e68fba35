package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amishk599/jobboard/internal/model"
)

// OutboxRepo reads and settles events recorded alongside relational writes.
type OutboxRepo struct {
	db *DB
}

// NewOutboxRepo returns an outbox repository backed by db.
func NewOutboxRepo(db *DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

func insertEvent(ctx context.Context, c conn, ev model.OutboxEvent) error {
	_, err := c.exec(ctx,
		"INSERT INTO outbox (id, topic, payload, created_at) VALUES (?, ?, ?, ?)",
		ev.ID, ev.Topic, string(ev.Payload), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting outbox event %s: %w", ev.ID, err)
	}
	return nil
}

// Pending returns up to limit undispatched events created at or before
// olderThan, oldest first.
func (r *OutboxRepo) Pending(ctx context.Context, olderThan time.Time, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.db.query(ctx,
		`SELECT id, topic, payload, attempts, last_error, created_at
		 FROM outbox WHERE dispatched_at IS NULL AND created_at <= ?
		 ORDER BY id LIMIT ?`,
		olderThan, limit,
	)
	if err != nil {
		return nil, model.Transient("list pending outbox", err)
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var (
			ev      model.OutboxEvent
			payload string
		)
		if err := rows.Scan(&ev.ID, &ev.Topic, &payload, &ev.Attempts, &ev.LastError, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning outbox event: %w", err)
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkDispatched settles the event. Settling twice is a no-op.
func (r *OutboxRepo) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.exec(ctx,
		"UPDATE outbox SET dispatched_at = ?, attempts = attempts + 1, last_error = '' WHERE id = ? AND dispatched_at IS NULL",
		at, id,
	)
	return model.Transient("mark outbox dispatched", err)
}

// MarkFailed records a failed publish attempt.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id string, cause error) error {
	_, err := r.db.exec(ctx,
		"UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?",
		cause.Error(), id,
	)
	return model.Transient("mark outbox failed", err)
}

// Get returns one event by id.
func (r *OutboxRepo) Get(ctx context.Context, id string) (model.OutboxEvent, error) {
	var (
		ev         model.OutboxEvent
		payload    string
		dispatched sql.NullTime
	)
	err := r.db.queryRow(ctx,
		"SELECT id, topic, payload, attempts, last_error, created_at, dispatched_at FROM outbox WHERE id = ?", id,
	).Scan(&ev.ID, &ev.Topic, &payload, &ev.Attempts, &ev.LastError, &ev.CreatedAt, &dispatched)
	if err == sql.ErrNoRows {
		return model.OutboxEvent{}, fmt.Errorf("outbox event %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.OutboxEvent{}, model.Transient("get outbox event", err)
	}
	ev.Payload = []byte(payload)
	ev.DispatchedAt = nullTime(dispatched)
	return ev, nil
}
