package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/gatewayscan/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "gatewayscan.db"

// sortableTimeFormat is fixed width so scanned_at sorts lexically.
const sortableTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ResultDB provides SQLite-based storage for scan results and feedback.
//
// Design decision: each row keeps the full result as JSON next to the
// columns history filters on (url, status, scanned_at). New result fields
// then need no migration, and queries stay on indexed columns.
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

// Open opens or creates the ResultDB in dbDir.
// With CreateIfNotExists false a missing database is an error.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
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
	CREATE TABLE IF NOT EXISTS scan_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		hits INTEGER NOT NULL,
		pages_checked INTEGER NOT NULL,
		scanned_at TEXT NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_url ON scan_results(url);
	CREATE INDEX IF NOT EXISTS idx_results_status ON scan_results(status);
	CREATE INDEX IF NOT EXISTS idx_results_scanned_at ON scan_results(scanned_at);

	-- Feedback pairs from the confirmation check
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_url ON feedback(url);
	`
	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// Record is a stored scan result.
type Record struct {
	ID int64
	model.ScanResult
}

// SaveResult stores one scan result and returns its row id.
func (rdb *ResultDB) SaveResult(ctx context.Context, result *model.ScanResult) (int64, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	query := `
	INSERT INTO scan_results (url, status, hits, pages_checked, scanned_at, result_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := rdb.db.ExecContext(ctx, query,
		result.URL,
		string(result.Status),
		result.Hits,
		result.PagesChecked,
		result.ScannedAt.UTC().Format(sortableTimeFormat),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save result: %w", err)
	}
	return res.LastInsertId()
}

// Filter selects results for ListResults.
type Filter struct {
	// Status limits results to one status. Empty means all.
	Status model.Status

	// URL limits results to one candidate URL. Empty means all.
	URL string

	// Limit caps the number of rows. Zero means no limit.
	Limit int
}

// ListResults returns stored results, newest first.
func (rdb *ResultDB) ListResults(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.URL != "" {
		where = append(where, "url = ?")
		args = append(args, f.URL)
	}

	query := "SELECT id, result_json FROM scan_results"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scanned_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			resultJSON string
		)
		if err := rows.Scan(&rec.ID, &resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(resultJSON), &rec.ScanResult); err != nil {
			return nil, fmt.Errorf("failed to parse result %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestResult returns the most recent result for url, or nil if none exists.
func (rdb *ResultDB) LatestResult(ctx context.Context, url string) (*Record, error) {
	records, err := rdb.ListResults(ctx, Filter{URL: url, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// CountByStatus returns the number of stored results per status.
func (rdb *ResultDB) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := rdb.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM scan_results GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// Feedback is one (url, succeeded) pair.
type Feedback struct {
	ID        int64
	URL       string
	Succeeded bool
	Timestamp time.Time
}

// RecordFeedback stores a confirmation outcome for url.
func (rdb *ResultDB) RecordFeedback(ctx context.Context, url string, succeeded bool) error {
	_, err := rdb.db.ExecContext(ctx, "INSERT INTO feedback (url, succeeded) VALUES (?, ?)", url, succeeded)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

// ListFeedback returns every feedback pair, oldest first.
func (rdb *ResultDB) ListFeedback(ctx context.Context) ([]Feedback, error) {
	rows, err := rdb.db.QueryContext(ctx, "SELECT id, url, succeeded, timestamp FROM feedback ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var (
			fb Feedback
			ts sql.NullString
		)
		if err := rows.Scan(&fb.ID, &fb.URL, &fb.Succeeded, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if ts.Valid {
			fb.Timestamp = parseTimestamp(ts.String)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// ErrNoDatabase is returned by OpenExisting when no results were saved yet.
var ErrNoDatabase = errors.New("no results database found")

// OpenExisting opens the database in dbDir without creating it.
func OpenExisting(dbDir string) (*ResultDB, error) {
	if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s", ErrNoDatabase, dbDir)
	}
	return Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns zero time on failure.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
