package jobstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobboard/internal/cache"
	"github.com/amishk599/jobboard/internal/model"
	"github.com/amishk599/jobboard/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePublisher records events and optionally fails every publish.
type fakePublisher struct {
	fail   bool
	events []model.OutboxEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, ev model.OutboxEvent) error {
	if f.fail {
		return model.Transient("publish to "+ev.Topic, errors.New("broker unavailable"))
	}
	f.events = append(f.events, ev)
	return nil
}

type harness struct {
	svc     *Service
	db      *store.DB
	mr      *miniredis.Miniredis
	pub     *fakePublisher
	company model.Company
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	companies := store.NewCompanyRepo(db)
	company, err := companies.Create(ctx, model.Company{Name: "Acme", Location: "Istanbul"})
	if err != nil {
		t.Fatalf("Create company: %v", err)
	}

	pub := &fakePublisher{}
	svc := New(store.NewJobRepo(db), companies, cache.NewJobCache(rdb, 0), cache.NewSequence(rdb, ""), pub, discardLogger())
	return &harness{svc: svc, db: db, mr: mr, pub: pub, company: company}
}

func (h *harness) spec() model.JobSpec {
	lo, hi := 50000, 90000
	return model.JobSpec{
		Title:       "Python Developer",
		Description: "Build backend services in Python.",
		CompanyID:   h.company.ID,
		Location:    "Istanbul, Turkey",
		SalaryMin:   &lo,
		SalaryMax:   &hi,
		WorkMode:    model.WorkModeHybrid,
		JobType:     model.JobTypeFullTime,
	}
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	created, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 1 || !created.IsActive || created.ApplicationCount != 0 {
		t.Errorf("created = %+v", created)
	}
	if created.CompanyName != "Acme" || created.CreatedBy != 5 {
		t.Errorf("created company/creator = %q/%d", created.CompanyName, created.CreatedBy)
	}
	if !h.mr.Exists("job:1") {
		t.Error("projection job:1 should be written through")
	}
	if len(h.pub.events) != 1 || h.pub.events[0].Topic != model.TopicJobCreated {
		t.Fatalf("published = %+v, want one job-created event", h.pub.events)
	}

	got, err := h.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != created.Title || got.Description != created.Description || got.Location != created.Location {
		t.Errorf("Get = %+v, want fields of %+v", got, created)
	}
	if got.WorkMode != created.WorkMode || got.JobType != created.JobType || *got.SalaryMin != 50000 || *got.SalaryMax != 90000 {
		t.Errorf("Get = %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) || !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("timestamps = %v/%v, want %v/%v", got.CreatedAt, got.UpdatedAt, created.CreatedAt, created.UpdatedAt)
	}
	if got.ApplicationCount != 0 {
		t.Errorf("ApplicationCount = %d, want 0", got.ApplicationCount)
	}
}

func TestCreateUnknownCompanyWritesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	spec := h.spec()
	spec.CompanyID = 999
	_, err := h.svc.Create(ctx, spec, 5)
	if !errors.Is(err, model.ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}

	maxID, err := store.NewJobRepo(h.db).MaxID(ctx)
	if err != nil {
		t.Fatalf("MaxID: %v", err)
	}
	if maxID != 0 {
		t.Errorf("MaxID = %d, want no job row", maxID)
	}
	if keys := h.mr.Keys(); len(keys) != 0 {
		t.Errorf("redis keys = %v, want none", keys)
	}
	if len(h.pub.events) != 0 {
		t.Errorf("published %d events, want 0", len(h.pub.events))
	}
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	h := newHarness(t)
	spec := h.spec()
	spec.WorkMode = "office"
	if _, err := h.svc.Create(context.Background(), spec, 5); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateSwallowsPublishFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.pub.fail = true

	job, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create should succeed when publishing fails, got %v", err)
	}
	if _, err := h.svc.Get(ctx, job.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}

	pending, err := store.NewOutboxRepo(h.db).Pending(ctx, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Topic != model.TopicJobCreated {
		t.Errorf("pending = %+v, want the job-created event left for the dispatcher", pending)
	}
}

func TestGetRebuildsProjectionAfterFlush(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	job, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.mr.FlushAll()

	got, err := h.svc.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get after flush: %v", err)
	}
	if got.Title != job.Title || got.CompanyName != "Acme" {
		t.Errorf("Get = %+v", got)
	}
	if !h.mr.Exists("job:1") {
		t.Error("projection should be rebuilt on read")
	}
}

func TestNoIDReuseAfterCacheFlush(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.mr.FlushAll()

	second, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create after flush: %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("second id %d reuses or precedes first id %d", second.ID, first.ID)
	}
}

func TestGetEvictsProjectionWithoutRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	if err := h.svc.cache.Put(ctx, model.JobPosting{ID: 99, Title: "Orphan", IsActive: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := h.svc.Get(ctx, 99); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.mr.Exists("job:99") {
		t.Error("orphan projection should be evicted")
	}
}

func TestGetRowWinsOverDivergentProjection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	job, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, err := h.svc.SoftDelete(ctx, job.ID); err != nil || !ok {
		t.Fatalf("SoftDelete = (%v, %v)", ok, err)
	}

	// A projection that missed the delete still claims the job is active.
	forged := job
	forged.IsActive = true
	if err := h.svc.cache.Put(ctx, forged); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := h.svc.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsActive {
		t.Error("Get returned the projection's is_active, want the row's")
	}

	projected, ok, err := h.svc.cache.Get(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("projection after read = (%v, %v), want hit", ok, err)
	}
	if projected.IsActive {
		t.Error("projection should be rewritten from the row")
	}
}

func TestGetUnknownJob(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.Get(context.Background(), 12345); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	job, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	h.svc.now = func() time.Time { return job.UpdatedAt.Add(time.Minute) }
	title := "Senior Python Developer"
	updated, err := h.svc.Update(ctx, job.ID, model.JobUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title || !updated.UpdatedAt.After(job.UpdatedAt) {
		t.Errorf("updated = %+v", updated)
	}

	got, err := h.svc.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != title || got.Location != job.Location {
		t.Errorf("Get after update = %+v", got)
	}

	missing := int64(404)
	if _, err := h.svc.Update(ctx, job.ID, model.JobUpdate{CompanyID: &missing}); !errors.Is(err, model.ErrCompanyNotFound) {
		t.Errorf("expected ErrCompanyNotFound, got %v", err)
	}
	if _, err := h.svc.Update(ctx, 777, model.JobUpdate{Title: &title}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	lo := 100000
	if _, err := h.svc.Update(ctx, job.ID, model.JobUpdate{SalaryMin: &lo}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("salary_min above salary_max: expected ErrValidation, got %v", err)
	}
}

func TestSoftDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	job, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	deletedAt := job.UpdatedAt.Add(time.Minute)
	h.svc.now = func() time.Time { return deletedAt }
	ok, err := h.svc.SoftDelete(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("SoftDelete = (%v, %v), want (true, nil)", ok, err)
	}

	h.svc.now = func() time.Time { return deletedAt.Add(time.Hour) }
	ok, err = h.svc.SoftDelete(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("second SoftDelete = (%v, %v), want (true, nil)", ok, err)
	}

	got, err := h.svc.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsActive {
		t.Error("job should be inactive")
	}
	if !got.UpdatedAt.Equal(deletedAt) {
		t.Errorf("UpdatedAt = %v, want %v from the first delete", got.UpdatedAt, deletedAt)
	}

	ok, err = h.svc.SoftDelete(ctx, 4242)
	if err != nil || ok {
		t.Errorf("SoftDelete unknown = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	job, err := h.svc.Create(ctx, h.spec(), 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.svc.Apply(ctx, job.ID, 11); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := h.svc.Apply(ctx, job.ID, 11); !errors.Is(err, model.ErrDuplicateApplication) {
		t.Fatalf("second Apply: expected ErrDuplicateApplication, got %v", err)
	}

	got, err := h.svc.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ApplicationCount != 1 {
		t.Errorf("ApplicationCount = %d, want 1", got.ApplicationCount)
	}

	if err := h.svc.Apply(ctx, 9999, 11); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Apply unknown job: expected ErrNotFound, got %v", err)
	}

	if _, err := h.svc.SoftDelete(ctx, job.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := h.svc.Apply(ctx, job.ID, 12); !errors.Is(err, model.ErrJobInactive) {
		t.Errorf("Apply inactive job: expected ErrJobInactive, got %v", err)
	}
}

func TestListActiveExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	a, _ := h.svc.Create(ctx, h.spec(), 5)
	b, _ := h.svc.Create(ctx, h.spec(), 5)
	if _, err := h.svc.SoftDelete(ctx, a.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	jobs, err := h.svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != b.ID {
		t.Errorf("ListActive = %+v, want only job %d", jobs, b.ID)
	}
}
