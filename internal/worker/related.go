package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobboard/internal/model"
)

// RelatedHandler stores a related_job notification per job-related-match message.
type RelatedHandler struct {
	notifications model.NotificationWriter
	notifier      model.Notifier
	logger        *slog.Logger
}

// NewRelatedHandler returns a job-related-match handler. notifier may be nil.
func NewRelatedHandler(notifications model.NotificationWriter, notifier model.Notifier, logger *slog.Logger) *RelatedHandler {
	return &RelatedHandler{
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
	}
}

// Handle processes one job-related-match payload.
func (h *RelatedHandler) Handle(ctx context.Context, payload []byte) error {
	var match model.RelatedJobMatch
	if err := json.Unmarshal(payload, &match); err != nil {
		return model.Malformed("decoding job-related-match: %v", err)
	}
	if match.UserID == 0 || match.Job == nil || match.Job.ID == 0 {
		return model.Malformed("job-related-match without user_id or job")
	}
	job := match.Job

	n, created, err := h.notifications.Create(ctx, model.Notification{
		UserID:  match.UserID,
		Type:    model.NotificationRelatedJob,
		Title:   fmt.Sprintf("Related job: %s - %s", job.Title, job.Location),
		Message: fmt.Sprintf("'%s' might interest you!", job.Title),
		Payload: model.NotificationPayload{JobID: job.ID},
	})
	if err != nil {
		return fmt.Errorf("notifying user %d of related job %d: %w", match.UserID, job.ID, err)
	}

	if created {
		mirror(ctx, h.notifier, []model.Notification{n}, h.logger)
	}
	h.logger.Info("processed job-related-match", "user_id", match.UserID, "job_id", job.ID, "new", created)
	return nil
}
