package model

import (
	"context"
	"time"
)

// Work modes and job types accepted on job create/update.
const (
	WorkModeRemote = "remote"
	WorkModeOnSite = "on-site"
	WorkModeHybrid = "hybrid"

	JobTypeFullTime = "full-time"
	JobTypePartTime = "part-time"
	JobTypeContract = "contract"
)

// JobPosting is the merged view of a job: the cache projection plus the
// relational-only fields computed on read.
type JobPosting struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	CompanyID        int64     `json:"company_id"`
	CompanyName      string    `json:"company_name"`
	Location         string    `json:"location"`
	SalaryMin        *int      `json:"salary_min,omitempty"`
	SalaryMax        *int      `json:"salary_max,omitempty"`
	WorkMode         string    `json:"work_mode"`
	JobType          string    `json:"job_type"`
	CreatedBy        int64     `json:"created_by"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ApplicationCount int       `json:"application_count"`
}

// JobSpec is the input to job creation.
type JobSpec struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"required,min=10"`
	CompanyID   int64  `json:"company_id" validate:"required,gt=0"`
	Location    string `json:"location" validate:"required,min=1,max=255"`
	SalaryMin   *int   `json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryMax   *int   `json:"salary_max,omitempty" validate:"omitempty,gte=0"`
	WorkMode    string `json:"work_mode" validate:"required,oneof=remote on-site hybrid"`
	JobType     string `json:"job_type" validate:"required,oneof=full-time part-time contract"`
}

// JobUpdate carries the fields to change on a job. Nil fields are left alone.
type JobUpdate struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=10"`
	CompanyID   *int64  `json:"company_id,omitempty" validate:"omitempty,gt=0"`
	Location    *string `json:"location,omitempty" validate:"omitempty,min=1,max=255"`
	SalaryMin   *int    `json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryMax   *int    `json:"salary_max,omitempty" validate:"omitempty,gte=0"`
	WorkMode    *string `json:"work_mode,omitempty" validate:"omitempty,oneof=remote on-site hybrid"`
	JobType     *string `json:"job_type,omitempty" validate:"omitempty,oneof=full-time part-time contract"`
}

// Empty reports whether the update changes nothing.
func (u JobUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.CompanyID == nil && u.Location == nil &&
		u.SalaryMin == nil && u.SalaryMax == nil && u.WorkMode == nil && u.JobType == nil
}

// Apply copies the set fields of u onto job.
func (u JobUpdate) Apply(job *JobPosting) {
	if u.Title != nil {
		job.Title = *u.Title
	}
	if u.Description != nil {
		job.Description = *u.Description
	}
	if u.CompanyID != nil {
		job.CompanyID = *u.CompanyID
	}
	if u.Location != nil {
		job.Location = *u.Location
	}
	if u.SalaryMin != nil {
		job.SalaryMin = u.SalaryMin
	}
	if u.SalaryMax != nil {
		job.SalaryMax = u.SalaryMax
	}
	if u.WorkMode != nil {
		job.WorkMode = *u.WorkMode
	}
	if u.JobType != nil {
		job.JobType = *u.JobType
	}
}

// Company is the employer a job posting belongs to.
type Company struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LogoURL  string `json:"logo_url,omitempty"`
	Location string `json:"location,omitempty"`
}

// JobApplication records that a user applied to a job. (job_id, user_id) is unique.
type JobApplication struct {
	JobID     int64     `json:"job_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyLookup resolves company references on job writes.
type CompanyLookup interface {
	GetCompany(ctx context.Context, id int64) (Company, error)
}

// JobCorpus returns the jobs the related-job scheduler scans each cycle.
type JobCorpus interface {
	ListActive(ctx context.Context) ([]JobPosting, error)
}

// EventPublisher publishes an outbox event to its topic and settles it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev OutboxEvent) error
}
