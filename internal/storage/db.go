package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS app_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	process_name TEXT,
	window_title TEXT,
	start_time TEXT,
	end_time TEXT,
	is_foreground INTEGER,
	raw_process_name TEXT
);
CREATE INDEX IF NOT EXISTS idx_app_usage_open ON app_usage(process_name, window_title, end_time);
CREATE INDEX IF NOT EXISTS idx_app_usage_start ON app_usage(start_time);
`

// migrations run after schema; each must be idempotent
var migrations = []func(*sql.DB) error{
	addRawProcessName,
}

const maxRetries = 3

// Store is the session database
type Store struct {
	db *sql.DB
}

type options struct {
	busyTimeout int
	mkdirAll    bool
}

// Option customises Open
type Option func(*options)

// WithBusyTimeout sets busy_timeout in milliseconds on every pooled
// connection. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// Open opens (and migrates) the session database at path.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: 10_000}
	for _, fn := range opts {
		fn(&o)
	}

	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path, o.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	for _, m := range migrations {
		if err := m(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: migrate: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn inside one transaction. fn's error rolls everything back.
// SQLITE_BUSY failures are retried with 100/200/300 ms backoff.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	for i := range maxRetries {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsBusy(err) || i == maxRetries-1 {
			return err
		}
		if err := sleepCtx(ctx, time.Duration(100*(i+1))*time.Millisecond); err != nil {
			return fmt.Errorf("storage: retry cancelled: %w", err)
		}
	}
	return errors.New("storage: max retries exceeded")
}

func (s *Store) runOnce(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// IsBusy reports whether err is an SQLite lock contention error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// dsn carries the pragmas so that every connection database/sql opens
// gets them, not only the first.
func dsn(path string, busyTimeout int) string {
	return fmt.Sprintf("file:%s?_txlock=immediate"+
		"&_pragma=busy_timeout(%d)"+
		"&_pragma=journal_mode(WAL)"+
		"&_pragma=synchronous(NORMAL)", path, busyTimeout)
}

// addRawProcessName adds the raw identity column to databases created
// before it existed. Old rows keep NULL and are matched by display name.
func addRawProcessName(db *sql.DB) error {
	var n int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('app_usage') WHERE name = 'raw_process_name'").Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect app_usage: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec("ALTER TABLE app_usage ADD COLUMN raw_process_name TEXT"); err != nil {
			return fmt.Errorf("add raw_process_name: %w", err)
		}
	}
	_, err = db.Exec("CREATE INDEX IF NOT EXISTS idx_app_usage_raw ON app_usage(raw_process_name)")
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
