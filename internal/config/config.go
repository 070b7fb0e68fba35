package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at the config file.
const EnvConfigPath = "JOBBOARD_CONFIG"

// DefaultPath is used when neither the flag nor the environment names a file.
const DefaultPath = "config.yaml"

// Config is the root configuration for the jobboard pipeline.
type Config struct {
	Database     DatabaseConfig
	Redis        RedisConfig
	Cache        CacheConfig
	Queue        QueueConfig
	Scheduler    SchedulerConfig
	Outbox       OutboxConfig
	Notification NotificationConfig
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "pgx"
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection URL for pgx
}

// RedisConfig locates the Redis server holding the cache, counter and streams.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig controls the job projection and id counter.
type CacheConfig struct {
	JobTTL     time.Duration
	CounterKey string
}

// QueueConfig tunes stream consumers.
type QueueConfig struct {
	Block          time.Duration // how long a receive blocks
	ClaimIdle      time.Duration // reclaim entries pending longer than this
	BatchSize      int64
	HandlerTimeout time.Duration
	MaxLen         int64 // approximate stream cap, 0 for unbounded
}

// SchedulerConfig controls the related-job cycle.
type SchedulerConfig struct {
	Interval  time.Duration
	TermLimit int
}

// OutboxConfig controls the outbox dispatcher.
type OutboxConfig struct {
	Interval   time.Duration
	Grace      time.Duration
	BatchSize  int
	MaxRetries int
	BaseDelay  time.Duration
}

// NotificationConfig controls which notifier mirrors new notifications.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "none"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	JobURL     string `yaml:"job_url"`     // optional, format string with %d for the job id
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Cache        rawCacheConfig     `yaml:"cache"`
	Queue        rawQueueConfig     `yaml:"queue"`
	Scheduler    rawSchedulerConfig `yaml:"scheduler"`
	Outbox       rawOutboxConfig    `yaml:"outbox"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawCacheConfig struct {
	JobTTL     string `yaml:"job_ttl"`
	CounterKey string `yaml:"counter_key"`
}

type rawQueueConfig struct {
	Block          string `yaml:"block"`
	ClaimIdle      string `yaml:"claim_idle"`
	BatchSize      int64  `yaml:"batch_size"`
	HandlerTimeout string `yaml:"handler_timeout"`
	MaxLen         int64  `yaml:"max_len"`
}

type rawSchedulerConfig struct {
	Interval  string `yaml:"interval"`
	TermLimit int    `yaml:"term_limit"`
}

type rawOutboxConfig struct {
	Interval   string `yaml:"interval"`
	Grace      string `yaml:"grace"`
	BatchSize  int    `yaml:"batch_size"`
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "jobboard.db"},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0"},
		Cache: CacheConfig{
			JobTTL:     2592000 * time.Second,
			CounterKey: "job_counter",
		},
		Queue: QueueConfig{
			Block:          5 * time.Second,
			ClaimIdle:      time.Minute,
			BatchSize:      10,
			HandlerTimeout: 30 * time.Second,
			MaxLen:         100000,
		},
		Scheduler: SchedulerConfig{
			Interval:  5 * time.Minute,
			TermLimit: 5,
		},
		Outbox: OutboxConfig{
			Interval:   30 * time.Second,
			Grace:      10 * time.Second,
			BatchSize:  100,
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
		},
		Notification: NotificationConfig{Type: "log"},
	}
}

// ResolvePath picks the config file: the flag value, then $JOBBOARD_CONFIG,
// then ./config.yaml. explicit is false only for the fallback default.
func ResolvePath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true
	}
	return DefaultPath, false
}

// LoadDotEnv loads .env from the working directory if it exists. Variables
// already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Resolve loads the config named by flagValue or the environment. A missing
// default file yields Default(); a missing explicit file is an error.
func Resolve(flagValue string) (*Config, error) {
	path, explicit := ResolvePath(flagValue)
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if raw.Database.Driver != "" {
		cfg.Database.Driver = raw.Database.Driver
	}
	if raw.Database.DSN != "" {
		cfg.Database.DSN = raw.Database.DSN
	}
	if raw.Redis.URL != "" {
		cfg.Redis.URL = raw.Redis.URL
	}
	if raw.Cache.CounterKey != "" {
		cfg.Cache.CounterKey = raw.Cache.CounterKey
	}
	if raw.Queue.BatchSize != 0 {
		cfg.Queue.BatchSize = raw.Queue.BatchSize
	}
	if raw.Queue.MaxLen != 0 {
		cfg.Queue.MaxLen = raw.Queue.MaxLen
	}
	if raw.Scheduler.TermLimit != 0 {
		cfg.Scheduler.TermLimit = raw.Scheduler.TermLimit
	}
	if raw.Outbox.BatchSize != 0 {
		cfg.Outbox.BatchSize = raw.Outbox.BatchSize
	}
	if raw.Outbox.MaxRetries != nil {
		cfg.Outbox.MaxRetries = *raw.Outbox.MaxRetries
	}
	if raw.Notification.Type != "" {
		cfg.Notification.Type = raw.Notification.Type
	}
	cfg.Notification.WebhookURL = raw.Notification.WebhookURL
	cfg.Notification.JobURL = raw.Notification.JobURL

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"cache.job_ttl", raw.Cache.JobTTL, &cfg.Cache.JobTTL},
		{"queue.block", raw.Queue.Block, &cfg.Queue.Block},
		{"queue.claim_idle", raw.Queue.ClaimIdle, &cfg.Queue.ClaimIdle},
		{"queue.handler_timeout", raw.Queue.HandlerTimeout, &cfg.Queue.HandlerTimeout},
		{"scheduler.interval", raw.Scheduler.Interval, &cfg.Scheduler.Interval},
		{"outbox.interval", raw.Outbox.Interval, &cfg.Outbox.Interval},
		{"outbox.grace", raw.Outbox.Grace, &cfg.Outbox.Grace},
		{"outbox.base_delay", raw.Outbox.BaseDelay, &cfg.Outbox.BaseDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", d.field, d.raw, err)
		}
		*d.dst = v
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"pgx\", got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if !strings.HasPrefix(cfg.Redis.URL, "redis://") && !strings.HasPrefix(cfg.Redis.URL, "rediss://") {
		return fmt.Errorf("redis.url must start with redis:// or rediss://, got %q", cfg.Redis.URL)
	}

	if cfg.Cache.JobTTL <= 0 {
		return fmt.Errorf("cache.job_ttl must be positive, got %v", cfg.Cache.JobTTL)
	}
	if cfg.Queue.Block <= 0 {
		return fmt.Errorf("queue.block must be positive, got %v", cfg.Queue.Block)
	}
	if cfg.Queue.ClaimIdle < 0 {
		return fmt.Errorf("queue.claim_idle must not be negative, got %v", cfg.Queue.ClaimIdle)
	}
	if cfg.Queue.HandlerTimeout <= 0 {
		return fmt.Errorf("queue.handler_timeout must be positive, got %v", cfg.Queue.HandlerTimeout)
	}
	if cfg.Queue.BatchSize <= 0 {
		return fmt.Errorf("queue.batch_size must be positive, got %d", cfg.Queue.BatchSize)
	}

	if cfg.Scheduler.Interval < time.Second {
		return fmt.Errorf("scheduler.interval must be at least 1s, got %v", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.TermLimit <= 0 {
		return fmt.Errorf("scheduler.term_limit must be positive, got %d", cfg.Scheduler.TermLimit)
	}

	if cfg.Outbox.Interval < time.Second {
		return fmt.Errorf("outbox.interval must be at least 1s, got %v", cfg.Outbox.Interval)
	}
	if cfg.Outbox.Grace < 0 {
		return fmt.Errorf("outbox.grace must not be negative, got %v", cfg.Outbox.Grace)
	}
	if cfg.Outbox.MaxRetries < 0 {
		return fmt.Errorf("outbox.max_retries must not be negative, got %d", cfg.Outbox.MaxRetries)
	}

	switch cfg.Notification.Type {
	case "log", "none":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\", \"slack\" or \"none\", got %q", cfg.Notification.Type)
	}
	if cfg.Notification.JobURL != "" && strings.Count(cfg.Notification.JobURL, "%d") != 1 {
		return fmt.Errorf("notification.job_url must contain exactly one %%d")
	}

	return nil
}
