package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobboard/internal/events"
	"github.com/amishk599/jobboard/internal/related"
	"github.com/amishk599/jobboard/internal/scheduler"
	"github.com/amishk599/jobboard/internal/store"
)

var runOnce bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run every loop in one process",
	Long:  "Runs the alert and related-job workers, the related-job scheduler and the outbox dispatcher; blocks until SIGINT/SIGTERM.",
	RunE:  runWithApp(runServe),
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the related-job scheduler",
	Long:  "Matches users' recent searches against active jobs every scheduler.interval, starting immediately.",
	RunE:  runWithApp(runScheduler),
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Run the outbox dispatcher",
	Long:  "Publishes job-created events whose immediate publication failed, every outbox.interval.",
	RunE:  runWithApp(runOutbox),
}

var outboxShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one outbox event and its delivery state",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(runOutboxShow),
}

func init() {
	rootCmd.AddCommand(serveCmd, schedulerCmd, outboxCmd)
	outboxCmd.AddCommand(outboxShowCmd)
	serveCmd.Flags().IntVarP(&concurrency, "concurrency", "n", 1, "consumers per worker kind")
	schedulerCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	outboxCmd.Flags().BoolVar(&runOnce, "once", false, "dispatch one batch and exit")
}

func relatedScheduler(ctx context.Context, a *app) (*related.Scheduler, error) {
	db, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	return related.NewScheduler(store.NewHistoryRepo(db), store.NewJobRepo(db), pub, a.cfg.Scheduler.TermLimit, a.logger), nil
}

func dispatchTask(d *events.Dispatcher, a *app) func(ctx context.Context) {
	return func(ctx context.Context) {
		if _, err := d.DispatchPending(ctx); err != nil {
			a.logger.Error("outbox dispatch failed", "error", err)
		}
	}
}

func runScheduler(ctx context.Context, a *app, _ []string) error {
	rs, err := relatedScheduler(ctx, a)
	if err != nil {
		a.logger.Error("failed to start scheduler", "error", err)
		return err
	}
	if runOnce {
		_, err := rs.Cycle(ctx)
		return err
	}

	sched := scheduler.NewScheduler(a.logger)
	if err := sched.Add("related-jobs", a.cfg.Scheduler.Interval, rs.Run); err != nil {
		return err
	}
	return sched.Run(ctx)
}

func runOutbox(ctx context.Context, a *app, _ []string) error {
	d, err := a.dispatcher(ctx)
	if err != nil {
		a.logger.Error("failed to start outbox dispatcher", "error", err)
		return err
	}
	if runOnce {
		_, err := d.DispatchPending(ctx)
		return err
	}

	sched := scheduler.NewScheduler(a.logger)
	if err := sched.Add("outbox", a.cfg.Outbox.Interval, dispatchTask(d, a)); err != nil {
		return err
	}
	return sched.Run(ctx)
}

func runServe(ctx context.Context, a *app, _ []string) error {
	alertRunners, err := buildRunners(ctx, a, alertWorkers, concurrency)
	if err != nil {
		a.logger.Error("failed to start alert workers", "error", err)
		return err
	}
	relatedRunners, err := buildRunners(ctx, a, relatedWorkers, concurrency)
	if err != nil {
		a.logger.Error("failed to start related workers", "error", err)
		return err
	}
	rs, err := relatedScheduler(ctx, a)
	if err != nil {
		return err
	}
	d, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(a.logger)
	if err := sched.Add("related-jobs", a.cfg.Scheduler.Interval, rs.Run); err != nil {
		return err
	}
	if err := sched.Add("outbox", a.cfg.Outbox.Interval, dispatchTask(d, a)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range append(alertRunners, relatedRunners...) {
		g.Go(func() error { return r.Run(gctx) })
	}
	g.Go(func() error { return sched.Run(gctx) })

	a.logger.Info("serving",
		"alert_workers", len(alertRunners),
		"related_workers", len(relatedRunners),
		"scheduler_interval", a.cfg.Scheduler.Interval.String(),
		"outbox_interval", a.cfg.Outbox.Interval.String(),
	)
	if err := g.Wait(); err != nil {
		a.logger.Error("serve error", "error", err)
		return err
	}

	a.logger.Info("goodbye")
	return nil
}

func runOutboxShow(ctx context.Context, a *app, args []string) error {
	db, err := a.store(ctx)
	if err != nil {
		return err
	}
	ev, err := store.NewOutboxRepo(db).Get(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(struct {
		ID           string          `json:"id"`
		Topic        string          `json:"topic"`
		Payload      json.RawMessage `json:"payload"`
		Attempts     int             `json:"attempts"`
		LastError    string          `json:"last_error,omitempty"`
		CreatedAt    time.Time       `json:"created_at"`
		DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
	}{ev.ID, ev.Topic, json.RawMessage(ev.Payload), ev.Attempts, ev.LastError, ev.CreatedAt, ev.DispatchedAt})
}
