// Package store is the relational persistence layer: companies, jobs and
// applications, alerts, search history, notifications and the event outbox.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type dialect struct {
	numbered  bool // $1, $2 placeholders instead of ?
	serial    string
	timestamp string
}

var dialects = map[string]dialect{
	DriverSQLite:   {serial: "INTEGER PRIMARY KEY AUTOINCREMENT", timestamp: "DATETIME"},
	DriverPostgres: {numbered: true, serial: "BIGSERIAL PRIMARY KEY", timestamp: "TIMESTAMPTZ"},
}

// rebind rewrites ? placeholders for drivers that use numbered parameters.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d dialect) ddl(stmt string) string {
	return strings.NewReplacer("{{serial}}", d.serial, "{{ts}}", d.timestamp).Replace(stmt)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs queries against a *sql.DB or *sql.Tx with placeholder rebinding.
type conn struct {
	q querier
	d dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

// DB is a migrated relational database shared by the repositories.
type DB struct {
	conn
	sql *sql.DB
}

// Open connects to the database with the given driver ("sqlite" or "pgx"),
// verifies the connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; concurrent workers in one process queue up here
		// instead of failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging %s db: %w", driver, err)
	}

	db := &DB{conn: conn{q: sqlDB, d: d}, sql: sqlDB}
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database file at path.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	return Open(ctx, DriverSQLite, path)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx conn) error) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(conn{q: tx, d: db.d}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id       {{serial}},
		name     TEXT NOT NULL,
		logo_url TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id          BIGINT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		company_id  BIGINT NOT NULL REFERENCES companies (id),
		location    TEXT NOT NULL,
		salary_min  INTEGER,
		salary_max  INTEGER,
		work_mode   TEXT NOT NULL,
		job_type    TEXT NOT NULL,
		created_by  BIGINT NOT NULL DEFAULT 0,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  {{ts}} NOT NULL,
		updated_at  {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS job_applications (
		id         {{serial}},
		job_id     BIGINT NOT NULL REFERENCES jobs (id),
		user_id    BIGINT NOT NULL,
		created_at {{ts}} NOT NULL,
		UNIQUE (job_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id             {{serial}},
		user_id        BIGINT NOT NULL,
		keyword        TEXT NOT NULL,
		location       TEXT NOT NULL,
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		last_triggered {{ts}},
		frequency      TEXT NOT NULL DEFAULT '',
		created_at     {{ts}} NOT NULL,
		updated_at     {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_active ON alerts (is_active)`,
	`CREATE TABLE IF NOT EXISTS search_history (
		id         {{serial}},
		user_id    BIGINT NOT NULL,
		term       TEXT NOT NULL,
		location   TEXT NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_history_user ON search_history (user_id, id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         {{serial}},
		user_id    BIGINT NOT NULL,
		type       TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		job_id     BIGINT NOT NULL,
		alert_id   BIGINT,
		is_read    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{ts}} NOT NULL,
		read_at    {{ts}},
		UNIQUE (user_id, job_id, type)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id            TEXT PRIMARY KEY,
		topic         TEXT NOT NULL,
		payload       TEXT NOT NULL,
		attempts      INTEGER NOT NULL DEFAULT 0,
		last_error    TEXT NOT NULL DEFAULT '',
		created_at    {{ts}} NOT NULL,
		dispatched_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (dispatched_at, id)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.exec(ctx, db.d.ddl(stmt)); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
