package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/amishk599/jobboard/internal/model"
)

var _ model.CompanyLookup = (*CompanyRepo)(nil)

// CompanyRepo stores the companies jobs are posted under.
type CompanyRepo struct {
	db *DB
}

// NewCompanyRepo returns a company repository backed by db.
func NewCompanyRepo(db *DB) *CompanyRepo {
	return &CompanyRepo{db: db}
}

// Create inserts a company and returns it with its assigned id.
func (r *CompanyRepo) Create(ctx context.Context, c model.Company) (model.Company, error) {
	err := r.db.queryRow(ctx,
		"INSERT INTO companies (name, logo_url, location) VALUES (?, ?, ?) RETURNING id",
		c.Name, c.LogoURL, c.Location,
	).Scan(&c.ID)
	if err != nil {
		return model.Company{}, fmt.Errorf("inserting company %q: %w", c.Name, err)
	}
	return c, nil
}

// GetCompany returns the company with the given id, or model.ErrCompanyNotFound.
func (r *CompanyRepo) GetCompany(ctx context.Context, id int64) (model.Company, error) {
	var c model.Company
	err := r.db.queryRow(ctx,
		"SELECT id, name, logo_url, location FROM companies WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.LogoURL, &c.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Company{}, fmt.Errorf("company %d: %w", id, model.ErrCompanyNotFound)
	}
	if err != nil {
		return model.Company{}, model.Transient("get company", err)
	}
	return c, nil
}

// List returns all companies ordered by id.
func (r *CompanyRepo) List(ctx context.Context) ([]model.Company, error) {
	rows, err := r.db.query(ctx, "SELECT id, name, logo_url, location FROM companies ORDER BY id")
	if err != nil {
		return nil, model.Transient("list companies", err)
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.LogoURL, &c.Location); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
