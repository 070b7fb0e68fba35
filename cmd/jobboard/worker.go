package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobboard/internal/model"
	"github.com/amishk599/jobboard/internal/queue"
	"github.com/amishk599/jobboard/internal/store"
	"github.com/amishk599/jobboard/internal/worker"
)

var concurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a queue consumer",
}

var workerAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Match created jobs against active alerts",
	Long:  "Consumes job-created and stores a job_alert notification for every matching alert. Blocks until SIGINT/SIGTERM.",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		return runConsumers(ctx, a, alertWorkers)
	}),
}

var workerRelatedCmd = &cobra.Command{
	Use:   "related",
	Short: "Store related-job notifications",
	Long:  "Consumes job-related-match and stores a related_job notification per match. Blocks until SIGINT/SIGTERM.",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		return runConsumers(ctx, a, relatedWorkers)
	}),
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerAlertsCmd, workerRelatedCmd)
	workerCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "n", 1, "number of competing consumers in this process")
}

type workerKind int

const (
	alertWorkers workerKind = iota
	relatedWorkers
)

// consumerName is unique per consumer so competing consumers split the stream.
func consumerName(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "jobboard"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, host, uuid.NewString()[:8])
}

// buildRunners returns n consumer loops of the given kind.
func buildRunners(ctx context.Context, a *app, kind workerKind, n int) ([]*worker.Runner, error) {
	db, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	rdb, err := a.redis(ctx)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	notes := store.NewNotificationRepo(db)
	mirror := setupNotifier(a.cfg, httpClient, a.logger)

	var (
		stream, group, prefix string
		handler               worker.Handler
	)
	switch kind {
	case alertWorkers:
		stream, group, prefix = model.TopicJobCreated, model.GroupAlertMatchers, "alerts"
		handler = worker.NewAlertHandler(store.NewAlertRepo(db), notes, mirror, a.logger)
	case relatedWorkers:
		stream, group, prefix = model.TopicJobRelatedMatch, model.GroupRelatedJobWorkers, "related"
		handler = worker.NewRelatedHandler(notes, mirror, a.logger)
	}

	if n < 1 {
		n = 1
	}
	runners := make([]*worker.Runner, 0, n)
	for i := 0; i < n; i++ {
		name := consumerName(prefix)
		consumer := queue.NewConsumer(rdb, queue.ConsumerConfig{
			Stream:    stream,
			Group:     group,
			Consumer:  name,
			Block:     a.cfg.Queue.Block,
			ClaimIdle: a.cfg.Queue.ClaimIdle,
			Count:     a.cfg.Queue.BatchSize,
		})
		runners = append(runners, worker.NewRunner(name, consumer, handler, worker.RunnerConfig{
			HandlerTimeout: a.cfg.Queue.HandlerTimeout,
			ErrorPause:     a.cfg.Queue.Block,
		}, a.logger))
	}
	return runners, nil
}

func runConsumers(ctx context.Context, a *app, kind workerKind) error {
	runners, err := buildRunners(ctx, a, kind, concurrency)
	if err != nil {
		a.logger.Error("failed to start workers", "error", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error { return r.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		a.logger.Error("worker error", "error", err)
		return err
	}

	a.logger.Info("goodbye")
	return nil
}
