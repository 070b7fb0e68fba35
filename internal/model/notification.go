package model

import (
	"context"
	"time"
)

// Notification types.
const (
	NotificationJobAlert   = "job_alert"
	NotificationRelatedJob = "related_job"
)

// Queue names.
const (
	TopicJobCreated      = "job-created"
	TopicJobRelatedMatch = "job-related-match"
)

// Consumer groups reading the queues.
const (
	GroupAlertMatchers     = "alert-matchers"
	GroupRelatedJobWorkers = "related-job-workers"
)

// Alert is a user-registered keyword + location criterion.
type Alert struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Keyword       string     `json:"keyword"`
	Location      string     `json:"location"`
	IsActive      bool       `json:"is_active"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
	Frequency     string     `json:"frequency,omitempty"` // stored, not consulted by matching
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewAlert is the input to alert registration.
type NewAlert struct {
	UserID    int64  `validate:"required,gt=0"`
	Keyword   string `validate:"required"`
	Location  string `validate:"required"`
	Frequency string `validate:"omitempty,oneof=daily weekly"`
}

// SearchHistoryEntry is one search a user ran. Entries are append-only.
type SearchHistoryEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Term      string    `json:"term"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPayload references the records a notification is about.
type NotificationPayload struct {
	JobID   int64  `json:"job_id"`
	AlertID *int64 `json:"alert_id,omitempty"`
}

// Notification is written once by a worker and later marked read by the client API.
type Notification struct {
	ID        int64               `json:"id"`
	UserID    int64               `json:"user_id"`
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Payload   NotificationPayload `json:"payload"`
	IsRead    bool                `json:"is_read"`
	CreatedAt time.Time           `json:"created_at"`
	ReadAt    *time.Time          `json:"read_at,omitempty"`
}

// RelatedJobMatch is the job-related-match queue payload.
type RelatedJobMatch struct {
	UserID int64       `json:"user_id"`
	Job    *JobPosting `json:"job"`
}

// AlertRegistry is the read side of alerts used by the alert matching worker.
type AlertRegistry interface {
	ListActive(ctx context.Context) ([]Alert, error)
	MarkTriggered(ctx context.Context, alertID int64, at time.Time) error
}

// SearchHistory is the read side of search history used by the scheduler.
type SearchHistory interface {
	Users(ctx context.Context) ([]int64, error)
	RecentTerms(ctx context.Context, userID int64, limit int) ([]SearchHistoryEntry, error)
}

// NotificationWriter creates notifications. created is false when an
// equivalent notification (same user, job and type) already exists.
type NotificationWriter interface {
	Create(ctx context.Context, n Notification) (saved Notification, created bool, err error)
}

// Notifier mirrors newly created notifications to an outward channel.
type Notifier interface {
	Notify(ctx context.Context, notifications []Notification) error
}

// MatchPublisher publishes related-job matches.
type MatchPublisher interface {
	PublishRelatedMatch(ctx context.Context, match RelatedJobMatch) error
}
