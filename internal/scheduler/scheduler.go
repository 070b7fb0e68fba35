// Package scheduler runs periodic tasks on robfig/cron. Every task runs once
// immediately, then on its interval. A tick that fires while the previous run
// of the same task is still in progress is skipped, the first run included.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler owns the cron loop for a set of tasks.
type Scheduler struct {
	tasks  []Task
	logger *slog.Logger
}

// NewScheduler returns an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a task. The interval becomes an "@every" schedule, which cron
// rounds to whole seconds with a minimum of one.
func (s *Scheduler) Add(name string, interval time.Duration, run func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive, got %s", name, interval)
	}
	s.tasks = append(s.tasks, Task{Name: name, Interval: interval, Run: run})
	return nil
}

// Run starts every task and blocks until ctx is cancelled. It waits for
// running tasks to finish and returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	var immediate sync.WaitGroup
	for _, t := range s.tasks {
		t := t
		job := cron.FuncJob(func() { s.runTask(ctx, t) })
		id, err := c.AddJob(fmt.Sprintf("@every %s", t.Interval), job)
		if err != nil {
			return fmt.Errorf("cron.AddJob %s: %w", t.Name, err)
		}
		s.logger.Info("scheduled task", "task", t.Name, "interval", t.Interval.String())

		// Run immediately on startup so the first cycle does not wait a full
		// interval. The wrapped job shares the chain, so a tick that fires
		// while this run is in progress is skipped.
		wrapped := c.Entry(id).WrappedJob
		immediate.Add(1)
		go func() {
			defer immediate.Done()
			wrapped.Run()
		}()
	}

	c.Start()
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")

	<-c.Stop().Done()
	immediate.Wait()
	return nil
}

func (s *Scheduler) runTask(ctx context.Context, t Task) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	t.Run(ctx)
	s.logger.Debug("task finished", "task", t.Name, "elapsed", time.Since(start).String())
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
