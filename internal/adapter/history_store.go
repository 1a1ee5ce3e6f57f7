package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// HistoryFileName is the run history database inside the state directory.
const HistoryFileName = "history.db"

// HistoryStore records finished compare runs.
type HistoryStore interface {
	Record(ctx context.Context, summary *m.RunSummary) error
	// List returns the most recent runs first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]m.HistoryEntry, error)
	Close() error
}

// SQLiteHistoryStore keeps the run history in a SQLite database.
type SQLiteHistoryStore struct {
	conn   *sql.DB
	dbPath string
}

// OpenHistoryStore opens or creates <dir>/history.db.
func OpenHistoryStore(dir m.Path) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dbPath := filepath.Join(string(dir), HistoryFileName)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &SQLiteHistoryStore{conn: conn, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteHistoryStore) initializeSchema() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			name TEXT NOT NULL,
			old_version TEXT NOT NULL,
			new_version TEXT NOT NULL,
			arch TEXT NOT NULL,
			report_dir TEXT NOT NULL,
			bc TEXT,
			bc_effective TEXT,
			source_bc TEXT,
			problems INTEGER NOT NULL DEFAULT 0,
			removed INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	`)

	return err
}

// Path returns the database file path.
func (s *SQLiteHistoryStore) Path() string {
	return s.dbPath
}

// Record inserts one finished run.
func (s *SQLiteHistoryStore) Record(ctx context.Context, summary *m.RunSummary) error {
	problems := summary.Score.Problems
	if !summary.Mode.Binary {
		problems = summary.Score.SrcProblems
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_ms, name, old_version, new_version, arch,
			report_dir, bc, bc_effective, source_bc, problems, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID,
		summary.StartedAt.UTC().Format(time.RFC3339Nano),
		summary.Duration.Milliseconds(),
		summary.Old.Name,
		summary.Old.Version,
		summary.New.Version,
		summary.Old.Arch,
		string(summary.ReportDir),
		nullNumber(summary.Meta.BC),
		nullNumber(summary.Meta.BCEffective),
		nullNumber(summary.Meta.SourceBC),
		problems,
		summary.Score.Removed,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", summary.ID, err)
	}

	return nil
}

// List returns recorded runs, newest first.
func (s *SQLiteHistoryStore) List(ctx context.Context, limit int) ([]m.HistoryEntry, error) {
	query := `
		SELECT id, started_at, duration_ms, name, old_version, new_version, arch,
			report_dir, bc, bc_effective, source_bc, problems, removed
		FROM runs ORDER BY started_at DESC`

	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var entries []m.HistoryEntry

	for rows.Next() {
		var (
			entry                  m.HistoryEntry
			startedAt, reportDir   string
			durationMS             int64
			bc, bcEffective, srcBC sql.NullString
		)

		if err := rows.Scan(&entry.ID, &startedAt, &durationMS, &entry.Name, &entry.OldVersion,
			&entry.NewVersion, &entry.Arch, &reportDir, &bc, &bcEffective, &srcBC,
			&entry.Problems, &entry.Removed); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		entry.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid start time %q: %w", startedAt, err)
		}

		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entry.ReportDir = m.Path(reportDir)
		entry.BC = bc.String
		entry.BCEffective = bcEffective.String
		entry.SourceBC = srcBC.String

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteHistoryStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}

	return nil
}

func nullNumber(n *m.Number) sql.NullString {
	if n == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: string(*n), Valid: true}
}
