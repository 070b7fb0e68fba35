package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobboard/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new notifications to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each notification via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each notification with user, type, title and job.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, notifications []model.Notification) error {
	for _, nt := range notifications {
		args := []any{"id", nt.ID, "user_id", nt.UserID, "type", nt.Type, "title", nt.Title, "job_id", nt.Payload.JobID}
		if nt.Payload.AlertID != nil {
			args = append(args, "alert_id", *nt.Payload.AlertID)
		}
		n.logger.Info("new notification", args...)
	}
	return nil
}
