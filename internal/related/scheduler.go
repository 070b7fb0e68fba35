// Package related finds jobs that match users' recent searches and publishes
// them for the related-job worker.
package related

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobboard/internal/filter"
	"github.com/amishk599/jobboard/internal/model"
)

// DefaultTermLimit is how many of a user's most recent searches are considered.
const DefaultTermLimit = 5

// Scheduler runs related-job matching cycles.
type Scheduler struct {
	history   model.SearchHistory
	corpus    model.JobCorpus
	publisher model.MatchPublisher
	termLimit int
	logger    *slog.Logger
}

// NewScheduler returns a scheduler. A non-positive termLimit selects DefaultTermLimit.
func NewScheduler(history model.SearchHistory, corpus model.JobCorpus, publisher model.MatchPublisher, termLimit int, logger *slog.Logger) *Scheduler {
	if termLimit <= 0 {
		termLimit = DefaultTermLimit
	}
	return &Scheduler{
		history:   history,
		corpus:    corpus,
		publisher: publisher,
		termLimit: termLimit,
		logger:    logger,
	}
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	Users     int
	Jobs      int
	Published int
	Failed    int
}

// Cycle matches every user with search history against the active job corpus
// and publishes one match per (user, job). Pairs are published again on every
// cycle; the notification store absorbs the repeats.
func (s *Scheduler) Cycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	users, err := s.history.Users(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing users with search history: %w", err)
	}
	stats.Users = len(users)
	if len(users) == 0 {
		s.logger.Info("no users with search history")
		return stats, nil
	}

	jobs, err := s.corpus.ListActive(ctx)
	if err != nil {
		return stats, fmt.Errorf("loading active jobs: %w", err)
	}
	stats.Jobs = len(jobs)

	for _, userID := range users {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		entries, err := s.history.RecentTerms(ctx, userID, s.termLimit)
		if err != nil {
			s.logger.Error("loading search terms", "user_id", userID, "error", err)
			stats.Failed++
			continue
		}
		terms := make([]string, 0, len(entries))
		for _, e := range entries {
			terms = append(terms, e.Term)
		}
		f := filter.NewTermFilter(terms)
		if f.Empty() {
			s.logger.Debug("no search terms", "user_id", userID)
			continue
		}

		matched := 0
		for i := range jobs {
			if !f.Match(jobs[i]) {
				continue
			}
			matched++
			job := jobs[i]
			if err := s.publisher.PublishRelatedMatch(ctx, model.RelatedJobMatch{UserID: userID, Job: &job}); err != nil {
				s.logger.Error("publishing related match", "user_id", userID, "job_id", job.ID, "error", err)
				stats.Failed++
				continue
			}
			stats.Published++
		}
		if matched == 0 {
			s.logger.Debug("no related jobs", "user_id", userID)
		}
	}

	s.logger.Info("related-job cycle complete",
		"users", stats.Users,
		"jobs", stats.Jobs,
		"published", stats.Published,
		"failed", stats.Failed,
	)
	return stats, nil
}

// Run executes one cycle and logs a cycle-level failure. It fits the
// periodic task signature of internal/scheduler.
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.Cycle(ctx); err != nil {
		s.logger.Error("related-job cycle failed", "error", err)
	}
}
