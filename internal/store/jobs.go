package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/jobboard/internal/model"
)

var _ model.JobCorpus = (*JobRepo)(nil)

// JobRepo is the durable record of jobs and their applications. It never
// expires rows and is the source of truth the cache projection is built from.
type JobRepo struct {
	db *DB
}

// NewJobRepo returns a job repository backed by db.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

const jobColumns = `j.id, j.title, j.description, j.company_id, COALESCE(c.name, ''), j.location,
	j.salary_min, j.salary_max, j.work_mode, j.job_type, j.created_by, j.is_active,
	j.created_at, j.updated_at`

const jobFrom = ` FROM jobs j LEFT JOIN companies c ON c.id = j.company_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (model.JobPosting, error) {
	var (
		j                    model.JobPosting
		salaryMin, salaryMax sql.NullInt64
	)
	err := s.Scan(&j.ID, &j.Title, &j.Description, &j.CompanyID, &j.CompanyName, &j.Location,
		&salaryMin, &salaryMax, &j.WorkMode, &j.JobType, &j.CreatedBy, &j.IsActive,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return model.JobPosting{}, err
	}
	j.SalaryMin = nullInt(salaryMin)
	j.SalaryMax = nullInt(salaryMax)
	return j, nil
}

// MaxID returns the highest job id ever stored, or 0 for an empty table.
func (r *JobRepo) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.queryRow(ctx, "SELECT COALESCE(MAX(id), 0) FROM jobs").Scan(&id); err != nil {
		return 0, model.Transient("max job id", err)
	}
	return id, nil
}

// InsertWithEvent writes the job row and its outbox event in one transaction.
func (r *JobRepo) InsertWithEvent(ctx context.Context, j model.JobPosting, ev model.OutboxEvent) error {
	err := r.db.withTx(ctx, func(tx conn) error {
		_, err := tx.exec(ctx,
			`INSERT INTO jobs (id, title, description, company_id, location, salary_min, salary_max,
				work_mode, job_type, created_by, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.ID, j.Title, j.Description, j.CompanyID, j.Location, intArg(j.SalaryMin), intArg(j.SalaryMax),
			j.WorkMode, j.JobType, j.CreatedBy, j.IsActive, j.CreatedAt, j.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting job %d: %w", j.ID, err)
		}
		return insertEvent(ctx, tx, ev)
	})
	return model.Transient("insert job", err)
}

// Get returns the job row with its company name, or model.ErrNotFound.
func (r *JobRepo) Get(ctx context.Context, id int64) (model.JobPosting, error) {
	j, err := scanJob(r.db.queryRow(ctx, "SELECT "+jobColumns+jobFrom+" WHERE j.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobPosting{}, fmt.Errorf("job %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.JobPosting{}, model.Transient("get job", err)
	}
	return j, nil
}

// Update rewrites the mutable columns of the job row from j.
func (r *JobRepo) Update(ctx context.Context, j model.JobPosting) error {
	res, err := r.db.exec(ctx,
		`UPDATE jobs SET title = ?, description = ?, company_id = ?, location = ?, salary_min = ?,
			salary_max = ?, work_mode = ?, job_type = ?, updated_at = ?
		 WHERE id = ?`,
		j.Title, j.Description, j.CompanyID, j.Location, intArg(j.SalaryMin), intArg(j.SalaryMax),
		j.WorkMode, j.JobType, j.UpdatedAt, j.ID,
	)
	if err != nil {
		return model.Transient("update job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Transient("update job", err)
	}
	if n == 0 {
		return fmt.Errorf("job %d: %w", j.ID, model.ErrNotFound)
	}
	return nil
}

// Deactivate clears is_active on an active job. changed is false when the job
// was already inactive or does not exist.
func (r *JobRepo) Deactivate(ctx context.Context, id int64, at time.Time) (changed bool, err error) {
	res, err := r.db.exec(ctx,
		"UPDATE jobs SET is_active = ?, updated_at = ? WHERE id = ? AND is_active = ?",
		false, at, id, true,
	)
	if err != nil {
		return false, model.Transient("deactivate job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, model.Transient("deactivate job", err)
	}
	return n > 0, nil
}

// ListActive returns every active job, oldest first.
func (r *JobRepo) ListActive(ctx context.Context) ([]model.JobPosting, error) {
	rows, err := r.db.query(ctx, "SELECT "+jobColumns+jobFrom+" WHERE j.is_active = ? ORDER BY j.id", true)
	if err != nil {
		return nil, model.Transient("list active jobs", err)
	}
	defer rows.Close()

	var jobs []model.JobPosting
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient("list active jobs", err)
	}
	return jobs, nil
}

// Apply records an application. created is false when the user already
// applied to the job.
func (r *JobRepo) Apply(ctx context.Context, jobID, userID int64, at time.Time) (created bool, err error) {
	res, err := r.db.exec(ctx,
		"INSERT INTO job_applications (job_id, user_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
		jobID, userID, at,
	)
	if err != nil {
		return false, model.Transient("insert application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, model.Transient("insert application", err)
	}
	return n > 0, nil
}

// ApplicationCount returns how many users applied to the job.
func (r *JobRepo) ApplicationCount(ctx context.Context, jobID int64) (int, error) {
	var n int
	err := r.db.queryRow(ctx, "SELECT COUNT(*) FROM job_applications WHERE job_id = ?", jobID).Scan(&n)
	if err != nil {
		return 0, model.Transient("count applications", err)
	}
	return n, nil
}
