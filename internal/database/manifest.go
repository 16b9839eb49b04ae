package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/acsmirror/internal/model"
)

// FileName is the name of the manifest file inside its directory.
const FileName = "acsmirror.db"

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Manifest records crawl runs and their transfers in SQLite.
// It is safe for concurrent use.
type Manifest struct {
	db     *sql.DB
	dbPath string
}

// Options configures Manifest behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the manifest in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Manifest, error) {
	dbPath := filepath.Join(dbDir, FileName)

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("database not found at %s: %w", dbPath, os.ErrNotExist)
			}
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	m := &Manifest{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := m.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

// Path returns the database file path.
func (m *Manifest) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func (m *Manifest) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		root_url TEXT NOT NULL,
		started TEXT NOT NULL,
		finished TEXT,
		status TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	-- One row per file a run handled, downloaded or already present
	CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		path TEXT NOT NULL,
		role TEXT NOT NULL,
		year TEXT,
		skipped INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		digest TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_run ON transfers(run_id);
	CREATE INDEX IF NOT EXISTS idx_transfers_path ON transfers(path);

	CREATE TABLE IF NOT EXISTS structure_issues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		year TEXT,
		message TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_structure_issues_run ON structure_issues(run_id);
	`

	_, err := m.db.ExecContext(context.Background(), schema)
	return err
}

// BeginRun inserts a new run.
func (m *Manifest) BeginRun(ctx context.Context, run model.Run) error {
	_, err := m.db.ExecContext(ctx, `
	INSERT INTO runs (id, kind, root_url, started, status)
	VALUES (?, ?, ?, ?, ?)
	`, run.ID, string(run.Kind), run.RootURL, formatTimestamp(run.Started), string(run.Status))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run started with BeginRun.
func (m *Manifest) FinishRun(ctx context.Context, run model.Run) error {
	res, err := m.db.ExecContext(ctx, `
	UPDATE runs SET finished = ?, status = ?, error = ?
	WHERE id = ?
	`, formatTimestamp(run.Finished), string(run.Status), run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// RecordTransfer stores one transfer of a run.
func (m *Manifest) RecordTransfer(ctx context.Context, runID string, t model.Transfer) error {
	_, err := m.db.ExecContext(ctx, `
	INSERT INTO transfers (run_id, url, path, role, year, skipped, bytes, digest, at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, t.URL, t.Path, t.Role, t.Year, t.Skipped, t.Bytes, t.Digest, formatTimestamp(t.At))
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

// RecordStructureIssue stores one structure issue of a run.
func (m *Manifest) RecordStructureIssue(ctx context.Context, runID string, issue model.StructureIssue) error {
	_, err := m.db.ExecContext(ctx, `
	INSERT INTO structure_issues (run_id, url, year, message, at)
	VALUES (?, ?, ?, ?, ?)
	`, runID, issue.URL, issue.Year, issue.Message, formatTimestamp(issue.At))
	if err != nil {
		return fmt.Errorf("failed to insert structure issue: %w", err)
	}
	return nil
}

// RunStats aggregates the transfers of one run.
type RunStats struct {
	Run             model.Run
	Downloaded      int
	Existing        int
	Bytes           int64
	StructureIssues int
}

// ListRuns returns up to limit runs, newest first, with their statistics.
// A limit of zero or less returns every run.
func (m *Manifest) ListRuns(ctx context.Context, limit int) ([]RunStats, error) {
	query := `
	SELECT r.id, r.kind, r.root_url, r.started, COALESCE(r.finished, ''), r.status, COALESCE(r.error, ''),
		(SELECT COUNT(*) FROM transfers t WHERE t.run_id = r.id AND t.skipped = 0),
		(SELECT COUNT(*) FROM transfers t WHERE t.run_id = r.id AND t.skipped = 1),
		(SELECT COALESCE(SUM(bytes), 0) FROM transfers t WHERE t.run_id = r.id),
		(SELECT COUNT(*) FROM structure_issues s WHERE s.run_id = r.id)
	FROM runs r
	ORDER BY r.started DESC, r.id
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunStats
	for rows.Next() {
		var s RunStats
		var kind, status, started, finished string
		if err := rows.Scan(&s.Run.ID, &kind, &s.Run.RootURL, &started, &finished, &status, &s.Run.Error,
			&s.Downloaded, &s.Existing, &s.Bytes, &s.StructureIssues); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.Run.Kind = model.RunKind(kind)
		s.Run.Status = model.RunStatus(status)
		s.Run.Started = parseTimestamp(started)
		s.Run.Finished = parseTimestamp(finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun returns one run. ErrRunNotFound is returned for unknown IDs.
func (m *Manifest) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	var kind, status, started, finished string
	err := m.db.QueryRowContext(ctx, `
	SELECT id, kind, root_url, started, COALESCE(finished, ''), status, COALESCE(error, '')
	FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &kind, &run.RootURL, &started, &finished, &status, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Kind = model.RunKind(kind)
	run.Status = model.RunStatus(status)
	run.Started = parseTimestamp(started)
	run.Finished = parseTimestamp(finished)
	return &run, nil
}

// RunTransfers returns the transfers of a run in the order they happened.
func (m *Manifest) RunTransfers(ctx context.Context, runID string) ([]model.Transfer, error) {
	rows, err := m.db.QueryContext(ctx, `
	SELECT url, path, role, COALESCE(year, ''), skipped, bytes, COALESCE(digest, ''), at
	FROM transfers WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var out []model.Transfer
	for rows.Next() {
		var t model.Transfer
		var at string
		if err := rows.Scan(&t.URL, &t.Path, &t.Role, &t.Year, &t.Skipped, &t.Bytes, &t.Digest, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		t.At = parseTimestamp(at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// RunStructureIssues returns the structure issues of a run.
func (m *Manifest) RunStructureIssues(ctx context.Context, runID string) ([]model.StructureIssue, error) {
	rows, err := m.db.QueryContext(ctx, `
	SELECT url, COALESCE(year, ''), message, at
	FROM structure_issues WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query structure issues: %w", err)
	}
	defer rows.Close()

	var out []model.StructureIssue
	for rows.Next() {
		var issue model.StructureIssue
		var at string
		if err := rows.Scan(&issue.URL, &issue.Year, &issue.Message, &at); err != nil {
			return nil, fmt.Errorf("failed to scan structure issue: %w", err)
		}
		issue.At = parseTimestamp(at)
		out = append(out, issue)
	}
	return out, rows.Err()
}

// timestampLayout has a fixed width so that stored times sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats are tried in order when reading stored times.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
