// Package jobstore owns job postings. The relational store holds the durable
// row; the cache holds a rebuildable projection written through on every
// change and repaired on read.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobboard/internal/events"
	"github.com/amishk599/jobboard/internal/model"
)

// Rows is the relational side of the job store.
type Rows interface {
	MaxID(ctx context.Context) (int64, error)
	InsertWithEvent(ctx context.Context, job model.JobPosting, ev model.OutboxEvent) error
	Get(ctx context.Context, id int64) (model.JobPosting, error)
	Update(ctx context.Context, job model.JobPosting) error
	Deactivate(ctx context.Context, id int64, at time.Time) (bool, error)
	ListActive(ctx context.Context) ([]model.JobPosting, error)
	Apply(ctx context.Context, jobID, userID int64, at time.Time) (bool, error)
	ApplicationCount(ctx context.Context, jobID int64) (int, error)
}

// Projection is the cached copy of job rows.
type Projection interface {
	Put(ctx context.Context, job model.JobPosting) error
	Get(ctx context.Context, id int64) (model.JobPosting, bool, error)
	Delete(ctx context.Context, id int64) error
}

// IDAllocator issues job ids that are never below fence.
type IDAllocator interface {
	Next(ctx context.Context, fence int64) (int64, error)
}

var _ model.JobCorpus = (*Service)(nil)

// Service implements job create, read, update, soft delete and apply.
type Service struct {
	rows      Rows
	companies model.CompanyLookup
	cache     Projection
	ids       IDAllocator
	publisher model.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a job store service.
func New(rows Rows, companies model.CompanyLookup, cache Projection, ids IDAllocator, publisher model.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		rows:      rows,
		companies: companies,
		cache:     cache,
		ids:       ids,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// timestamp returns the current time at the precision every backend keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores a new active job and emits job-created. The returned job has
// an application count of zero.
func (s *Service) Create(ctx context.Context, spec model.JobSpec, createdBy int64) (model.JobPosting, error) {
	if err := spec.Validate(); err != nil {
		return model.JobPosting{}, err
	}
	company, err := s.companies.GetCompany(ctx, spec.CompanyID)
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("creating job: %w", err)
	}

	fence, err := s.rows.MaxID(ctx)
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("creating job: %w", err)
	}
	id, err := s.ids.Next(ctx, fence)
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("allocating job id: %w", err)
	}

	now := s.timestamp()
	job := model.JobPosting{
		ID:          id,
		Title:       spec.Title,
		Description: spec.Description,
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Location:    spec.Location,
		SalaryMin:   spec.SalaryMin,
		SalaryMax:   spec.SalaryMax,
		WorkMode:    spec.WorkMode,
		JobType:     spec.JobType,
		CreatedBy:   createdBy,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ev, err := events.NewJobCreatedEvent(job, now)
	if err != nil {
		return model.JobPosting{}, err
	}
	if err := s.rows.InsertWithEvent(ctx, job, ev); err != nil {
		return model.JobPosting{}, fmt.Errorf("creating job: %w", err)
	}

	s.project(ctx, job)
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		s.logger.Warn("job-created left to outbox", "job_id", job.ID, "event_id", ev.ID, "error", err)
	}

	s.logger.Info("job created", "job_id", job.ID, "title", job.Title, "company_id", job.CompanyID)
	return job, nil
}

// Get returns the merged view of job id: projection fields plus the row's
// updated_at and the live application count.
func (s *Service) Get(ctx context.Context, id int64) (model.JobPosting, error) {
	cached, hit, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Warn("cache read failed, using relational store", "job_id", id, "error", err)
		hit = false
	}

	row, err := s.rows.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		if hit {
			s.logger.Warn("evicting projection without row", "job_id", id)
			if err := s.cache.Delete(ctx, id); err != nil {
				s.logger.Warn("evicting projection", "job_id", id, "error", err)
			}
		}
		return model.JobPosting{}, err
	}
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("getting job %d: %w", id, err)
	}

	job := cached
	if !hit || stale(cached, row) {
		s.project(ctx, row)
		job = row
	}
	job.UpdatedAt = row.UpdatedAt

	count, err := s.rows.ApplicationCount(ctx, id)
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("getting job %d: %w", id, err)
	}
	job.ApplicationCount = count
	return job, nil
}

// stale reports whether the projection lags behind the row.
func stale(cached, row model.JobPosting) bool {
	return cached.IsActive != row.IsActive || !cached.UpdatedAt.Equal(row.UpdatedAt)
}

// Update applies the set fields of u to job id.
func (s *Service) Update(ctx context.Context, id int64, u model.JobUpdate) (model.JobPosting, error) {
	if err := u.Validate(); err != nil {
		return model.JobPosting{}, err
	}
	job, err := s.rows.Get(ctx, id)
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("updating job %d: %w", id, err)
	}
	if u.Empty() {
		return s.withCount(ctx, job)
	}

	if u.CompanyID != nil && *u.CompanyID != job.CompanyID {
		company, err := s.companies.GetCompany(ctx, *u.CompanyID)
		if err != nil {
			return model.JobPosting{}, fmt.Errorf("updating job %d: %w", id, err)
		}
		job.CompanyName = company.Name
	}
	u.Apply(&job)
	if job.SalaryMin != nil && job.SalaryMax != nil && *job.SalaryMin > *job.SalaryMax {
		return model.JobPosting{}, fmt.Errorf("%w: salary_min %d exceeds salary_max %d",
			model.ErrValidation, *job.SalaryMin, *job.SalaryMax)
	}
	job.UpdatedAt = s.timestamp()

	if err := s.rows.Update(ctx, job); err != nil {
		return model.JobPosting{}, fmt.Errorf("updating job %d: %w", id, err)
	}
	s.project(ctx, job)

	s.logger.Info("job updated", "job_id", id)
	return s.withCount(ctx, job)
}

// SoftDelete marks job id inactive. It reports false when the job does not
// exist. Deleting an inactive job succeeds without changing it.
func (s *Service) SoftDelete(ctx context.Context, id int64) (bool, error) {
	job, err := s.rows.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting job %d: %w", id, err)
	}

	now := s.timestamp()
	changed, err := s.rows.Deactivate(ctx, id, now)
	if err != nil {
		return false, fmt.Errorf("deleting job %d: %w", id, err)
	}
	if changed {
		job.IsActive = false
		job.UpdatedAt = now
		s.logger.Info("job deactivated", "job_id", id)
	}
	s.project(ctx, job)
	return true, nil
}

// Apply records that userID applied to jobID.
func (s *Service) Apply(ctx context.Context, jobID, userID int64) error {
	job, err := s.rows.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("applying to job %d: %w", jobID, err)
	}
	if !job.IsActive {
		return fmt.Errorf("applying to job %d: %w", jobID, model.ErrJobInactive)
	}
	created, err := s.rows.Apply(ctx, jobID, userID, s.timestamp())
	if err != nil {
		return fmt.Errorf("applying to job %d: %w", jobID, err)
	}
	if !created {
		return fmt.Errorf("user %d, job %d: %w", userID, jobID, model.ErrDuplicateApplication)
	}
	s.logger.Info("application recorded", "job_id", jobID, "user_id", userID)
	return nil
}

// ListActive returns the active job corpus.
func (s *Service) ListActive(ctx context.Context) ([]model.JobPosting, error) {
	jobs, err := s.rows.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active jobs: %w", err)
	}
	return jobs, nil
}

func (s *Service) withCount(ctx context.Context, job model.JobPosting) (model.JobPosting, error) {
	count, err := s.rows.ApplicationCount(ctx, job.ID)
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("counting applications for job %d: %w", job.ID, err)
	}
	job.ApplicationCount = count
	return job, nil
}

// project writes the projection of job. A failed write is logged; the next
// read rebuilds the projection.
func (s *Service) project(ctx context.Context, job model.JobPosting) {
	if err := s.cache.Put(ctx, job); err != nil {
		s.logger.Warn("cache write failed", "job_id", job.ID, "error", err)
	}
}
