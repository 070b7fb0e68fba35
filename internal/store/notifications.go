package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/jobboard/internal/model"
)

var _ model.NotificationWriter = (*NotificationRepo)(nil)

// NotificationRepo persists notifications. At most one notification exists per
// (user_id, job_id, type), so redelivered messages and repeated scheduler
// cycles do not duplicate what the user sees.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo returns a notification repository backed by db.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = "id, user_id, type, title, message, job_id, alert_id, is_read, created_at, read_at"

func scanNotification(s rowScanner) (model.Notification, error) {
	var (
		n       model.Notification
		alertID sql.NullInt64
		readAt  sql.NullTime
	)
	err := s.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Payload.JobID, &alertID,
		&n.IsRead, &n.CreatedAt, &readAt)
	if err != nil {
		return model.Notification{}, err
	}
	if alertID.Valid {
		id := alertID.Int64
		n.Payload.AlertID = &id
	}
	n.ReadAt = nullTime(readAt)
	return n, nil
}

// Create inserts n unless a notification with the same user, job and type
// exists, in which case created is false and saved is the zero value.
func (r *NotificationRepo) Create(ctx context.Context, n model.Notification) (saved model.Notification, created bool, err error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	var alertID any
	if n.Payload.AlertID != nil {
		alertID = *n.Payload.AlertID
	}
	err = r.db.queryRow(ctx,
		`INSERT INTO notifications (user_id, type, title, message, job_id, alert_id, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING RETURNING id`,
		n.UserID, n.Type, n.Title, n.Message, n.Payload.JobID, alertID, false, n.CreatedAt,
	).Scan(&n.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notification{}, false, nil
	}
	if err != nil {
		return model.Notification{}, false, model.Transient("insert notification", err)
	}
	n.IsRead = false
	return n, true, nil
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE user_id = ?"
	args := []any{userID}
	if unreadOnly {
		query += " AND is_read = ?"
		args = append(args, false)
	}
	query += " ORDER BY id DESC"

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, model.Transient("list notifications", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient("list notifications", err)
	}
	return out, nil
}

// MarkRead flags the notification as read. Marking an already-read
// notification keeps its original read_at.
func (r *NotificationRepo) MarkRead(ctx context.Context, id int64) error {
	res, err := r.db.exec(ctx,
		"UPDATE notifications SET is_read = ?, read_at = COALESCE(read_at, ?) WHERE id = ?",
		true, time.Now().UTC(), id,
	)
	if err != nil {
		return model.Transient("mark notification read", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %d: %w", id, model.ErrNotFound)
	}
	return nil
}
