// Package state records the history of region table loads in SQLite.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/regionmap/pkg/core"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var errNotOpened = errors.New("database not opened")

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implements core.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ core.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite state store. A nil logger discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// StartRun records a new run in the running state.
func (s *SQLiteStore) StartRun(ctx context.Context, trigger string) (*core.LoadRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &core.LoadRun{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    core.LoadStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("starting run", slog.String("id", run.ID), slog.String("trigger", trigger))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO load_runs (id, trigger_name, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Trigger, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run succeeded and records the files it read.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, summary core.LoadSummary) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE load_runs
		 SET status = ?, completed_at = ?, regions = ?, with_data = ?,
		     duplicates = ?, source_count = ?, duration_ms = ?
		 WHERE id = ?`,
		string(core.LoadStatusSucceeded), time.Now().UTC(),
		summary.Regions, summary.WithData, summary.Duplicates,
		len(summary.Sources), summary.Duration.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if err := requireOneRow(res, id); err != nil {
		return err
	}

	for _, src := range summary.Sources {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO load_files (run_id, path, kind, size, sha256) VALUES (?, ?, ?, ?, ?)`,
			id, src.Path, string(src.Kind), src.Size, src.SHA256,
		)
		if err != nil {
			return fmt.Errorf("failed to record source %s: %w", src.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// FailRun marks a run failed with errMsg.
func (s *SQLiteStore) FailRun(ctx context.Context, id string, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE load_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(core.LoadStatusFailed), time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}
	return requireOneRow(res, id)
}

const runColumns = `id, trigger_name, status, started_at, completed_at, error,
	regions, with_data, duplicates, source_count, duration_ms`

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.LoadRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM load_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*core.LoadRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM load_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*core.LoadRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunSources returns the files a run read, ordered by path.
func (s *SQLiteStore) GetRunSources(ctx context.Context, id string) ([]core.SourceFile, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, kind, size, sha256 FROM load_files WHERE run_id = ? ORDER BY path`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run sources: %w", err)
	}
	defer rows.Close()

	var sources []core.SourceFile
	for rows.Next() {
		var (
			src  core.SourceFile
			kind string
		)
		if err := rows.Scan(&src.Path, &kind, &src.Size, &src.SHA256); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Kind = core.SourceKind(kind)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.LoadRun, error) {
	var (
		run         core.LoadRun
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	err := row.Scan(&run.ID, &run.Trigger, &status, &run.StartedAt, &completedAt, &errMsg,
		&run.Regions, &run.WithData, &run.Duplicates, &run.SourceCount, &run.DurationMsec)
	if err != nil {
		return nil, err
	}
	run.Status = core.LoadStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return &run, nil
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
