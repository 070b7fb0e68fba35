package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amishk599/jobboard/internal/model"
)

var _ model.AlertRegistry = (*AlertRepo)(nil)

// AlertRepo persists user alert criteria. The pipeline never deletes alerts.
type AlertRepo struct {
	db *DB
}

// NewAlertRepo returns an alert repository backed by db.
func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

const alertColumns = "id, user_id, keyword, location, is_active, last_triggered, frequency, created_at, updated_at"

func scanAlert(s rowScanner) (model.Alert, error) {
	var (
		a         model.Alert
		triggered sql.NullTime
	)
	err := s.Scan(&a.ID, &a.UserID, &a.Keyword, &a.Location, &a.IsActive, &triggered,
		&a.Frequency, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Alert{}, err
	}
	a.LastTriggered = nullTime(triggered)
	return a, nil
}

// Create validates and registers an active alert.
func (r *AlertRepo) Create(ctx context.Context, in model.NewAlert) (model.Alert, error) {
	if err := in.Validate(); err != nil {
		return model.Alert{}, err
	}
	now := time.Now().UTC()
	a := model.Alert{
		UserID:    in.UserID,
		Keyword:   in.Keyword,
		Location:  in.Location,
		IsActive:  true,
		Frequency: in.Frequency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.queryRow(ctx,
		`INSERT INTO alerts (user_id, keyword, location, is_active, frequency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		a.UserID, a.Keyword, a.Location, a.IsActive, a.Frequency, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return model.Alert{}, model.Transient("insert alert", err)
	}
	return a, nil
}

// ListActive returns every active alert.
func (r *AlertRepo) ListActive(ctx context.Context) ([]model.Alert, error) {
	return r.list(ctx, "SELECT "+alertColumns+" FROM alerts WHERE is_active = ? ORDER BY id", true)
}

// ListByUser returns all alerts of a user, active or not.
func (r *AlertRepo) ListByUser(ctx context.Context, userID int64) ([]model.Alert, error) {
	return r.list(ctx, "SELECT "+alertColumns+" FROM alerts WHERE user_id = ? ORDER BY id", userID)
}

func (r *AlertRepo) list(ctx context.Context, query string, args ...any) ([]model.Alert, error) {
	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, model.Transient("list alerts", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient("list alerts", err)
	}
	return alerts, nil
}

// SetActive pauses or resumes an alert.
func (r *AlertRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.exec(ctx,
		"UPDATE alerts SET is_active = ?, updated_at = ? WHERE id = ?",
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return model.Transient("update alert", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// MarkTriggered records when the alert last produced a notification.
func (r *AlertRepo) MarkTriggered(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.exec(ctx, "UPDATE alerts SET last_triggered = ? WHERE id = ?", at, id)
	return model.Transient("mark alert triggered", err)
}
