// Package history keeps a SQLite ledger of reconcile passes and their item
// failures, so `sy status` and the dashboard can show what happened across
// runs and processes.
//
// The ledger lives next to the store (default ~/.local/share/studysync/
// history.db) and runs in WAL mode so the daemon can write while the CLI
// reads.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/studysync/studysync/internal/sync"
	"github.com/studysync/studysync/internal/types"
)

// DB wraps the ledger connection.
type DB struct {
	conn *sql.DB
	path string
}

// Run is one recorded reconcile pass.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Aborted    bool
	Created    int
	Updated    int
	Skipped    int
	Failed     int
	// Error is the run-level error, empty for a clean pass.
	Error string
}

// Open opens or creates the ledger at path and initializes its schema.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping history: %w", err)
	}
	conn.SetMaxOpenConns(4)

	db := &DB{conn: conn, path: path}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the ledger file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint history WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the ledger tables. It is idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the ledger tables with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		aborted INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS failures (
		run_id INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT,
		error_kind TEXT NOT NULL,
		message TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_failures_item ON failures(item_id);
	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// RecordRun stores a report and its failures. runErr is the error returned
// alongside the report, if any.
func (db *DB) RecordRun(ctx context.Context, report *sync.Report, runErr error) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, finished_at, dry_run, aborted, created, updated, skipped, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(report.DryRun),
		boolToInt(report.Aborted),
		report.Created, report.Updated, report.Skipped, report.Failed,
		errText,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for _, f := range report.Failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failures (run_id, item_id, kind, title, error_kind, message)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, f.ItemID, string(f.Kind), f.Title, string(f.ErrorKind), f.Message)
		if err != nil {
			return 0, fmt.Errorf("failed to insert failure for %s: %w", f.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, started_at, finished_at, dry_run, aborted, created, updated, skipped, failed, error
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			dryRun, aborted   int
			errText           sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &dryRun, &aborted,
			&r.Created, &r.Updated, &r.Skipped, &r.Failed, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		r.DryRun = dryRun != 0
		r.Aborted = aborted != 0
		r.Error = errText.String
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Failures returns the failures recorded for a run.
func (db *DB) Failures(ctx context.Context, runID int64) ([]sync.Failure, error) {
	return db.queryFailures(ctx, `
		SELECT item_id, kind, title, error_kind, message
		FROM failures WHERE run_id = ? ORDER BY rowid`, runID)
}

// ItemFailures returns the most recent failures of one item, newest first.
func (db *DB) ItemFailures(ctx context.Context, itemID string, limit int) ([]sync.Failure, error) {
	if limit <= 0 {
		limit = 10
	}
	return db.queryFailures(ctx, `
		SELECT item_id, kind, title, error_kind, message
		FROM failures WHERE item_id = ? ORDER BY run_id DESC LIMIT ?`, itemID, limit)
}

func (db *DB) queryFailures(ctx context.Context, query string, args ...any) ([]sync.Failure, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var out []sync.Failure
	for rows.Next() {
		var (
			f              sync.Failure
			kind, errKind  string
			title, message sql.NullString
		)
		if err := rows.Scan(&f.ItemID, &kind, &title, &errKind, &message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Kind = types.Kind(kind)
		f.ErrorKind = sync.ErrorKind(errKind)
		f.Title = title.String
		f.Message = message.String
		out = append(out, f)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were
// removed.
func (db *DB) Prune(ctx context.Context, keep int) (int64, error) {
	if _, err := db.conn.ExecContext(ctx, `
		DELETE FROM failures WHERE run_id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep); err != nil {
		return 0, fmt.Errorf("failed to prune failures: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
