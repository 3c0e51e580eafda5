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

	"github.com/nao1215/httpdoom/internal/model"
	"github.com/nao1215/httpdoom/internal/pipeline"
	"github.com/nao1215/httpdoom/internal/probe"
)

// FileName is the database file name inside the output directory.
const FileName = "results.db"

// ErrEmptyRunID is returned when a batch is saved without a run id.
var ErrEmptyRunID = errors.New("run id must not be empty")

// ResultDB is a per-batch SQLite store.
type ResultDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ResultDB behavior.
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

// Open opens or creates results.db in dir.
func Open(dir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

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

	rdb := &ResultDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

func (rdb *ResultDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		total INTEGER NOT NULL,
		alive INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		origin_uri TEXT NOT NULL,
		final_uri TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		success INTEGER NOT NULL,
		title TEXT,
		content_sha256 TEXT,
		result_json TEXT NOT NULL,
		UNIQUE(run_id, origin_uri)
	);

	CREATE INDEX IF NOT EXISTS idx_results_status ON results(status_code);
	CREATE INDEX IF NOT EXISTS idx_results_digest ON results(content_sha256);

	CREATE TABLE IF NOT EXISTS technologies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL REFERENCES results(id),
		name TEXT NOT NULL,
		version TEXT,
		confidence INTEGER NOT NULL,
		implied INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_technologies_name ON technologies(name);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT
	);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveBatch stores a whole batch in a single transaction.
func (rdb *ResultDB) SaveBatch(ctx context.Context, runID string, batch *pipeline.BatchResult) (err error) {
	if runID == "" {
		return ErrEmptyRunID
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started, elapsed_ms, total, alive) VALUES (?, ?, ?, ?, ?)`,
		runID,
		batch.Started.UTC().Format(time.RFC3339Nano),
		batch.Elapsed.Milliseconds(),
		batch.Total(),
		len(batch.Results),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, r := range batch.Results {
		if err = insertResult(ctx, tx, runID, r); err != nil {
			return err
		}
	}

	for _, f := range batch.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, url, kind, message) VALUES (?, ?, ?, ?)`,
			runID, f.Target.URL(), string(probe.KindOf(f.Err)), msg,
		); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func insertResult(ctx context.Context, tx *sql.Tx, runID string, r *model.ProbeResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO results (run_id, origin_uri, final_uri, status_code, success, title, content_sha256, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.OriginURI, r.FinalURI, r.StatusCode, boolToInt(r.Success), r.Title, r.ContentSHA256, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result for %s: %w", r.OriginURI, err)
	}

	resultID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read result id: %w", err)
	}

	for _, tech := range r.Technologies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO technologies (result_id, name, version, confidence, implied) VALUES (?, ?, ?, ?, ?)`,
			resultID, tech.Name, tech.Version, tech.Confidence, boolToInt(tech.Implied),
		); err != nil {
			return fmt.Errorf("failed to insert technology %s: %w", tech.Name, err)
		}
	}
	return nil
}

// StoredResult is a result row as read back from the database.
type StoredResult struct {
	ID            int64
	OriginURI     string
	FinalURI      string
	StatusCode    int
	Success       bool
	Title         string
	ContentSHA256 string
	Result        *model.ProbeResult
}

// Results returns the results of a run ordered by insertion.
func (rdb *ResultDB) Results(ctx context.Context, runID string) ([]StoredResult, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT id, origin_uri, final_uri, status_code, success, title, content_sha256, result_json
	FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			sr      StoredResult
			success int
			title   sql.NullString
			digest  sql.NullString
			blob    string
		)
		if err := rows.Scan(&sr.ID, &sr.OriginURI, &sr.FinalURI, &sr.StatusCode, &success, &title, &digest, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		sr.Success = success != 0
		sr.Title = title.String
		sr.ContentSHA256 = digest.String

		var r model.ProbeResult
		if err := json.Unmarshal([]byte(blob), &r); err != nil {
			return nil, fmt.Errorf("failed to deserialize result: %w", err)
		}
		sr.Result = &r
		out = append(out, sr)
	}
	return out, rows.Err()
}

// TechnologyCounts returns how many results of a run each technology was
// detected on.
func (rdb *ResultDB) TechnologyCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT t.name, COUNT(DISTINCT t.result_id)
	FROM technologies t JOIN results r ON r.id = t.result_id
	WHERE r.run_id = ?
	GROUP BY t.name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query technologies: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("failed to scan technology: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// FailureCounts returns the number of dead targets per failure kind.
func (rdb *ResultDB) FailureCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := rdb.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM failures WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
