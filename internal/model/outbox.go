package model

import "time"

// OutboxEvent is an event recorded in the same transaction as the write that
// produced it. It stays pending until a publish to Topic succeeds.
type OutboxEvent struct {
	ID           string     `json:"id"`
	Topic        string     `json:"topic"`
	Payload      []byte     `json:"payload"`
	Attempts     int        `json:"attempts"`
	LastError    string     `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
}
