// Package deadletter is the local store for FITS frame uploads that
// failed to reach the catalog. The Capture event forwards frames
// fire-and-forget (spec section 5), so a failed upload would otherwise
// be silently lost; this package records it for later retry instead, per
// the redesign note in spec section 9.
package deadletter

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

//go:embed migrations/*
var migrationFiles embed.FS

// Entry is one dead-lettered frame upload.
type Entry struct {
	ID         int64     `db:"id"`
	JobID      string    `db:"job_id"`
	Reason     string    `db:"reason"`
	Frame      []byte    `db:"frame"`
	JDObs      float64   `db:"jd_obs"`
	CreatedAt  time.Time `db:"created_at"`
	RetryCount int       `db:"retry_count"`
	Acked      bool      `db:"acked"`
}

// Store is a SQLite-backed append-and-retry log. One process owns one
// Store; SQLite does not multiplex writers well, so the connection pool
// is capped to a single connection, matching internal/repository's
// sqlite3 handling.
type Store struct {
	db *sqlx.DB
}

var registerOnce sync.Once

// Open opens (creating if needed) the dead-letter database at path and
// runs pending migrations.
func Open(path string) (*Store, error) {
	registerOnce.Do(func() {
		sql.Register("sqlite3_deadletter", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &hooks{}))
	})

	db, err := sqlx.Open("sqlite3_deadletter", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("deadletter: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db.DB); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	driver, err := migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
	if err != nil {
		return fmt.Errorf("deadletter: migration driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("deadletter: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("deadletter: migrate init: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("deadletter: migrate up: %w", err)
	}
	return nil
}

// Record appends a failed upload.
func (s *Store) Record(ctx context.Context, jobID, reason string, frame []byte, jdObs float64) error {
	q, args, err := sq.Insert("dead_letters").
		Columns("job_id", "reason", "frame", "jd_obs").
		Values(jobID, reason, frame, jdObs).
		ToSql()
	if err != nil {
		return fmt.Errorf("deadletter: build insert: %w", err)
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

// Pending returns unacked entries, oldest first, for retry-sweep
// consumption by internal/scheduler's gocron housekeeping job.
func (s *Store) Pending(ctx context.Context, limit int) ([]Entry, error) {
	q, args, err := sq.Select("id", "job_id", "reason", "frame", "jd_obs", "created_at", "retry_count", "acked").
		From("dead_letters").
		Where(sq.Eq{"acked": false}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("deadletter: build select: %w", err)
	}

	var out []Entry
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("deadletter: select pending: %w", err)
	}
	return out, nil
}

// Ack marks an entry as delivered.
func (s *Store) Ack(ctx context.Context, id int64) error {
	q, args, err := sq.Update("dead_letters").Set("acked", true).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("deadletter: build ack: %w", err)
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

// BumpRetry increments the retry counter for an entry that failed again.
func (s *Store) BumpRetry(ctx context.Context, id int64) error {
	q, args, err := sq.Update("dead_letters").
		Set("retry_count", sq.Expr("retry_count + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("deadletter: build bump: %w", err)
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
