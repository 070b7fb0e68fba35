package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amishk599/jobboard/internal/cache"
	"github.com/amishk599/jobboard/internal/config"
	"github.com/amishk599/jobboard/internal/events"
	"github.com/amishk599/jobboard/internal/jobstore"
	"github.com/amishk599/jobboard/internal/model"
	"github.com/amishk599/jobboard/internal/notifier"
	"github.com/amishk599/jobboard/internal/queue"
	"github.com/amishk599/jobboard/internal/retry"
	"github.com/amishk599/jobboard/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "jobboard",
	Short:         "Job board notification pipeline",
	Long:          "jobboard stores job postings and turns new jobs and users' searches into notifications.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBBOARD_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig loads .env, then resolves the config path and parses it.
// Priority: explicit path arg > JOBBOARD_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	return config.Resolve(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, cfg.Notification.JobURL, httpClient,
			retry.New(2, 2*time.Second, logger), logger)
	case "none":
		return nil
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// app holds the connections and components a command needs. Connections are
// opened on first use so commands that only touch the relational store run
// without Redis.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	flags  *pflag.FlagSet // flags of the running command

	db  *store.DB
	rdb *redis.Client
}

func newApp() (*app, error) {
	logger := setupLogger(debug)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return nil, err
	}
	logger.Debug("config loaded",
		"driver", cfg.Database.Driver,
		"scheduler_interval", cfg.Scheduler.Interval.String(),
		"outbox_interval", cfg.Outbox.Interval.String(),
		"notification", cfg.Notification.Type,
	)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) store(ctx context.Context) (*store.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := store.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) redis(ctx context.Context) (*redis.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}
	rdb, err := cache.NewRedisClient(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.rdb = rdb
	return rdb, nil
}

func (a *app) publisher(ctx context.Context) (*events.Publisher, error) {
	db, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	rdb, err := a.redis(ctx)
	if err != nil {
		return nil, err
	}
	return events.NewPublisher(queue.NewPublisher(rdb, a.cfg.Queue.MaxLen), store.NewOutboxRepo(db), a.logger), nil
}

func (a *app) jobService(ctx context.Context) (*jobstore.Service, error) {
	db, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	rdb, err := a.redis(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	return jobstore.New(
		store.NewJobRepo(db),
		store.NewCompanyRepo(db),
		cache.NewJobCache(rdb, a.cfg.Cache.JobTTL),
		cache.NewSequence(rdb, a.cfg.Cache.CounterKey),
		pub,
		a.logger,
	), nil
}

func (a *app) dispatcher(ctx context.Context) (*events.Dispatcher, error) {
	db, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	return events.NewDispatcher(
		store.NewOutboxRepo(db),
		pub,
		retry.New(a.cfg.Outbox.MaxRetries, a.cfg.Outbox.BaseDelay, a.logger),
		events.DispatcherConfig{Grace: a.cfg.Outbox.Grace, BatchSize: a.cfg.Outbox.BatchSize},
		a.logger,
	), nil
}

// runWithApp builds the app, runs fn and releases connections.
func runWithApp(fn func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		a.flags = cmd.Flags()
		return fn(cmd.Context(), a, args)
	}
}
