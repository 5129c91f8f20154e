package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/specvalidate/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "history.db"

// HistoryDB stores validation outcomes in SQLite.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
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

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		passed INTEGER NOT NULL,
		state TEXT NOT NULL,
		failed_stage TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		started_unix_ns INTEGER NOT NULL,
		outcome_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_unix_ns);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveOutcome stores a finished outcome. Saving the same run ID twice
// replaces the earlier row.
func (h *HistoryDB) SaveOutcome(ctx context.Context, outcome *model.Outcome) error {
	if outcome.RunID == "" {
		return ErrNoRunID
	}
	if !outcome.State.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrNotTerminal, outcome.State)
	}

	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to serialize outcome: %w", err)
	}

	query := `
	INSERT INTO runs (id, document, passed, state, failed_stage, duration_ms, started_at, started_unix_ns, outcome_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		document = excluded.document,
		passed = excluded.passed,
		state = excluded.state,
		failed_stage = excluded.failed_stage,
		duration_ms = excluded.duration_ms,
		started_at = excluded.started_at,
		started_unix_ns = excluded.started_unix_ns,
		outcome_json = excluded.outcome_json
	`

	_, err = h.db.ExecContext(ctx, query,
		outcome.RunID,
		outcome.Document,
		outcome.Passed(),
		outcome.State.String(),
		string(outcome.FailedStage),
		outcome.Duration().Milliseconds(),
		outcome.StartedAt.UTC().Format(time.RFC3339Nano),
		outcome.StartedAt.UnixNano(),
		string(outcomeJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}

	return nil
}

// RunSummary contains summary information about a stored run.
// It is used for listing history without loading the full outcome.
type RunSummary struct {
	// ID is the run ID.
	ID string

	// Document is the validated document.
	Document string

	// Passed is true when the run succeeded.
	Passed bool

	// State is the terminal state name.
	State string

	// FailedStage is the failing stage, empty on success.
	FailedStage string

	// Duration is the total run time.
	Duration time.Duration

	// StartedAt is when the run began.
	StartedAt time.Time
}

// ListRuns returns run summaries, newest first. An empty document lists
// runs of every document. A limit of zero or less returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, document string, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, document, passed, state, failed_stage, duration_ms, started_at
	FROM runs
	WHERE (? = '' OR document = ?)
	ORDER BY started_unix_ns DESC
	`
	args := []any{document, document}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var (
			summary     RunSummary
			failedStage sql.NullString
			durationMS  int64
			startedAt   string
		)
		if err := rows.Scan(&summary.ID, &summary.Document, &summary.Passed, &summary.State,
			&failedStage, &durationMS, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summary.FailedStage = failedStage.String
		summary.Duration = time.Duration(durationMS) * time.Millisecond
		summary.StartedAt = parseTimestamp(startedAt)
		results = append(results, summary)
	}

	return results, rows.Err()
}

// ListDocuments returns every document with at least one stored run.
func (h *HistoryDB) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT document FROM runs ORDER BY document`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []string
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, document)
	}

	return documents, rows.Err()
}

// GetRun returns the stored outcome of a run.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*model.Outcome, error) {
	return h.queryOutcome(ctx, `SELECT outcome_json FROM runs WHERE id = ?`, id)
}

// LatestRun returns the most recent stored outcome for document.
// It returns ErrRunNotFound when the document has no history.
func (h *HistoryDB) LatestRun(ctx context.Context, document string) (*model.Outcome, error) {
	query := `
	SELECT outcome_json FROM runs
	WHERE document = ?
	ORDER BY started_unix_ns DESC
	LIMIT 1
	`
	return h.queryOutcome(ctx, query, document)
}

func (h *HistoryDB) queryOutcome(ctx context.Context, query string, arg any) (*model.Outcome, error) {
	var outcomeJSON string
	err := h.db.QueryRowContext(ctx, query, arg).Scan(&outcomeJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var outcome model.Outcome
	if err := json.Unmarshal([]byte(outcomeJSON), &outcome); err != nil {
		return nil, fmt.Errorf("failed to parse outcome: %w", err)
	}

	return &outcome, nil
}

// PruneRuns deletes all but the newest keep runs of every document and
// returns the number of deleted rows.
func (h *HistoryDB) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	query := `
	DELETE FROM runs WHERE id IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY document ORDER BY started_unix_ns DESC) AS rn
			FROM runs
		) WHERE rn > ?
	)
	`

	result, err := h.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
