package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobboard/internal/filter"
	"github.com/amishk599/jobboard/internal/model"
)

// AlertHandler matches each created job against active alerts:
// decode → load alerts → match → store notifications → mark triggered → mirror.
type AlertHandler struct {
	alerts        model.AlertRegistry
	notifications model.NotificationWriter
	notifier      model.Notifier
	logger        *slog.Logger
	now           func() time.Time
}

// NewAlertHandler returns a job-created handler. notifier may be nil.
func NewAlertHandler(alerts model.AlertRegistry, notifications model.NotificationWriter, notifier model.Notifier, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		alerts:        alerts,
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
	}
}

// Handle processes one job-created payload.
func (h *AlertHandler) Handle(ctx context.Context, payload []byte) error {
	var job model.JobPosting
	if err := json.Unmarshal(payload, &job); err != nil {
		return model.Malformed("decoding job-created: %v", err)
	}
	if job.ID == 0 || job.Title == "" {
		return model.Malformed("job-created without id or title")
	}

	alerts, err := h.alerts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("matching job %d: %w", job.ID, err)
	}

	var created []model.Notification
	matched := 0
	for _, alert := range alerts {
		if !filter.AlertMatches(alert, job) {
			continue
		}
		matched++

		alertID := alert.ID
		n, isNew, err := h.notifications.Create(ctx, model.Notification{
			UserID:  alert.UserID,
			Type:    model.NotificationJobAlert,
			Title:   fmt.Sprintf("New job: %s - %s", job.Title, job.Location),
			Message: fmt.Sprintf("A new job posting titled '%s' was published!", job.Title),
			Payload: model.NotificationPayload{JobID: job.ID, AlertID: &alertID},
		})
		if err != nil {
			return fmt.Errorf("notifying user %d of job %d: %w", alert.UserID, job.ID, err)
		}
		if isNew {
			created = append(created, n)
		}

		if err := h.alerts.MarkTriggered(ctx, alert.ID, h.now().UTC()); err != nil {
			return fmt.Errorf("marking alert %d triggered: %w", alert.ID, err)
		}
	}

	mirror(ctx, h.notifier, created, h.logger)

	h.logger.Info("processed job-created",
		"job_id", job.ID,
		"alerts", len(alerts),
		"matched", matched,
		"new", len(created),
	)
	return nil
}

// mirror forwards new notifications to the outward channel. They are already
// stored, so a failure here is only logged.
func mirror(ctx context.Context, notifier model.Notifier, notifications []model.Notification, logger *slog.Logger) {
	if notifier == nil || len(notifications) == 0 {
		return
	}
	if err := notifier.Notify(ctx, notifications); err != nil {
		logger.Warn("mirroring notifications failed", "count", len(notifications), "error", err)
	}
}
