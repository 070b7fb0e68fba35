package store

import (
	"context"
	"fmt"
	"time"

	"github.com/amishk599/jobboard/internal/model"
)

var _ model.SearchHistory = (*HistoryRepo)(nil)

// HistoryRepo is the append-only log of user searches.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo returns a search history repository backed by db.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record appends a search to the user's history.
func (r *HistoryRepo) Record(ctx context.Context, userID int64, term, location string) (model.SearchHistoryEntry, error) {
	e := model.SearchHistoryEntry{
		UserID:    userID,
		Term:      term,
		Location:  location,
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.queryRow(ctx,
		"INSERT INTO search_history (user_id, term, location, created_at) VALUES (?, ?, ?, ?) RETURNING id",
		e.UserID, e.Term, e.Location, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return model.SearchHistoryEntry{}, model.Transient("insert search history", err)
	}
	return e, nil
}

// Users returns the distinct users that have any search history.
func (r *HistoryRepo) Users(ctx context.Context) ([]int64, error) {
	rows, err := r.db.query(ctx, "SELECT DISTINCT user_id FROM search_history ORDER BY user_id")
	if err != nil {
		return nil, model.Transient("list history users", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// RecentTerms returns the user's last limit searches, newest first.
func (r *HistoryRepo) RecentTerms(ctx context.Context, userID int64, limit int) ([]model.SearchHistoryEntry, error) {
	rows, err := r.db.query(ctx,
		`SELECT id, user_id, term, location, created_at FROM search_history
		 WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, model.Transient("list recent searches", err)
	}
	defer rows.Close()

	var entries []model.SearchHistoryEntry
	for rows.Next() {
		var e model.SearchHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Term, &e.Location, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning search history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
