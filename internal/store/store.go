// Package store persists build attempts and sweep bookkeeping in
// SQLite. The builder writes, the web server reads; everything goes
// through one connection so the two never trip over the write lock.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// ErrNotFound is returned by detail lookups for combinations that were
// never attempted.
var ErrNotFound = errors.New("build not found")

const schema = `
CREATE TABLE IF NOT EXISTS build_info (
    nightly TEXT NOT NULL,
    target  TEXT NOT NULL,
    status  TEXT NOT NULL,
    stderr  TEXT NOT NULL,
    mode    TEXT NOT NULL,
    PRIMARY KEY (nightly, target, mode)
);

CREATE TABLE IF NOT EXISTS finished_nightly (
    nightly TEXT NOT NULL,
    mode    TEXT NOT NULL,
    PRIMARY KEY (nightly, mode)
);
`

type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating file and schema when
// missing. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	// One connection: sqlite has a single writer anyway, and the pool
	// would hand each :memory: connection its own empty database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert records one build attempt. (nightly, target, mode) is unique;
// recording a second attempt for the same key fails.
func (s *Store) Insert(ctx context.Context, b model.BuildAttempt) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO build_info (nightly, target, status, stderr, mode) VALUES (?, ?, ?, ?, ?)`,
		b.Nightly, b.Target, string(b.Status), b.Stderr, string(b.Mode))
	if err != nil {
		return fmt.Errorf("inserting build %s %s %s: %w", b.Nightly, b.Target, b.Mode, err)
	}
	return nil
}

// BuildStatus returns every attempt without stderr: the matrix payload.
func (s *Store) BuildStatus(ctx context.Context) ([]model.BuildAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT nightly, target, status, mode FROM build_info`)
	if err != nil {
		return nil, fmt.Errorf("querying build status: %w", err)
	}
	defer rows.Close()

	var out []model.BuildAttempt
	for rows.Next() {
		var b model.BuildAttempt
		if err := rows.Scan(&b.Nightly, &b.Target, &b.Status, &b.Mode); err != nil {
			return nil, fmt.Errorf("scanning build row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BuildStatusFull returns one attempt including stderr, or ErrNotFound.
func (s *Store) BuildStatusFull(ctx context.Context, nightly, target string, mode model.Mode) (model.BuildAttempt, error) {
	var b model.BuildAttempt
	err := s.db.QueryRowContext(ctx,
		`SELECT nightly, target, status, stderr, mode FROM build_info WHERE nightly = ? AND target = ? AND mode = ?`,
		nightly, target, string(mode)).
		Scan(&b.Nightly, &b.Target, &b.Status, &b.Stderr, &b.Mode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BuildAttempt{}, fmt.Errorf("%w: %s %s %s", ErrNotFound, nightly, target, mode)
	}
	if err != nil {
		return model.BuildAttempt{}, fmt.Errorf("querying build %s %s %s: %w", nightly, target, mode, err)
	}
	return b, nil
}

// FinishedNightlies lists the nightlies already swept for a mode.
func (s *Store) FinishedNightlies(ctx context.Context, mode model.Mode) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT nightly FROM finished_nightly WHERE mode = ?`, string(mode))
	if err != nil {
		return nil, fmt.Errorf("querying finished nightlies: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var nightly string
		if err := rows.Scan(&nightly); err != nil {
			return nil, fmt.Errorf("scanning finished nightly: %w", err)
		}
		out = append(out, nightly)
	}
	return out, rows.Err()
}

func (s *Store) IsNightlyFinished(ctx context.Context, nightly string, mode model.Mode) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM finished_nightly WHERE nightly = ? AND mode = ?`,
		nightly, string(mode)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking finished nightly: %w", err)
	}
	return n > 0, nil
}

// FinishNightly marks a sweep complete so it is never attempted again.
// Idempotent.
func (s *Store) FinishNightly(ctx context.Context, nightly string, mode model.Mode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO finished_nightly (nightly, mode) VALUES (?, ?)`,
		nightly, string(mode))
	if err != nil {
		return fmt.Errorf("marking nightly finished: %w", err)
	}
	return nil
}

type StatusCount struct {
	Mode   model.Mode
	Status model.Status
	Count  int
}

// StatusCounts aggregates attempts by (mode, status) for the metrics
// endpoint.
func (s *Store) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mode, status, COUNT(*) FROM build_info GROUP BY mode, status ORDER BY mode, status`)
	if err != nil {
		return nil, fmt.Errorf("counting builds: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Mode, &c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FinishedCounts returns the number of finished nightlies per mode.
func (s *Store) FinishedCounts(ctx context.Context) (map[model.Mode]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mode, COUNT(*) FROM finished_nightly GROUP BY mode`)
	if err != nil {
		return nil, fmt.Errorf("counting finished nightlies: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Mode]int)
	for rows.Next() {
		var mode model.Mode
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			return nil, fmt.Errorf("scanning finished count: %w", err)
		}
		out[mode] = n
	}
	return out, rows.Err()
}
