// Package ledger persists the durable record of completed conversions. Each
// record is keyed by the original file's content fingerprint; the UNIQUE
// constraint on that column is the system's idempotency guarantee against
// double-archiving the same content.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lectern/internal/config"
	"lectern/internal/services"
)

// ErrDuplicateFingerprint reports an insert for a fingerprint that is already
// recorded.
var ErrDuplicateFingerprint = errors.New("fingerprint already recorded")

// StatusArchived is the processing status stored for completed conversions.
const StatusArchived = "archived"

// Record describes one completed conversion.
type Record struct {
	ID            int64
	Fingerprint   string
	OriginalPath  string
	ConvertedPath string
	Status        string
	HasSubtitles  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint TEXT NOT NULL UNIQUE,
    original_path TEXT NOT NULL,
    converted_path TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'archived',
    has_subtitles INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_converted_path ON conversions(converted_path);
`

// Open initializes or connects to the ledger database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "ledger.db"))
}

// OpenPath opens a ledger database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert records a completed conversion. The fingerprint must be unique; a
// second insert for the same content fails with ErrDuplicateFingerprint.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(rec.Fingerprint) == "" {
		return services.Wrap(services.ErrPersistence, "ledger", "insert", "empty fingerprint", nil)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	status := rec.Status
	if status == "" {
		status = StatusArchived
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO conversions (
            fingerprint, original_path, converted_path, status, has_subtitles, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Fingerprint,
		rec.OriginalPath,
		rec.ConvertedPath,
		status,
		boolToInt(rec.HasSubtitles),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.Wrap(services.ErrPersistence, "ledger", "insert", rec.Fingerprint, ErrDuplicateFingerprint)
		}
		return services.Wrap(services.ErrPersistence, "ledger", "insert", rec.Fingerprint, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return services.Wrap(services.ErrPersistence, "ledger", "insert", "last insert id", err)
	}
	rec.ID = id
	rec.Status = status
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

// GetByID fetches a record by identifier, returning nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM conversions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "ledger", "get", fmt.Sprint(id), err)
	}
	return rec, nil
}

// ByFingerprint fetches a record by its content fingerprint, returning nil
// when absent.
func (s *Store) ByFingerprint(ctx context.Context, fingerprint string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM conversions WHERE fingerprint = ?`, fingerprint)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "ledger", "find by fingerprint", fingerprint, err)
	}
	return rec, nil
}

// ConvertedPaths returns the set of converted paths with ledger records. The
// scanner consults this every cycle to suppress re-queueing processed files.
func (s *Store) ConvertedPaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT converted_path FROM conversions`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "ledger", "converted paths", "", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths[path] = struct{}{}
	}
	return paths, rows.Err()
}

// List returns all records ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM conversions ORDER BY created_at`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "ledger", "list", "", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Remove deletes a record by identifier and returns it, or nil when the id was
// unknown. Deleting the archived file on disk is the caller's responsibility;
// record and file lifecycle are coupled at the daemon level.
func (s *Store) Remove(ctx context.Context, id int64) (*Record, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE id = ?`, id); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "ledger", "remove", fmt.Sprint(id), err)
	}
	return rec, nil
}

// SetSubtitles updates the subtitle flag for a record.
func (s *Store) SetSubtitles(ctx context.Context, id int64, present bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE conversions SET has_subtitles = ?, updated_at = ? WHERE id = ?`,
		boolToInt(present),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "ledger", "set subtitles", fmt.Sprint(id), err)
	}
	return nil
}

const recordColumns = "id, fingerprint, original_path, converted_path, status, has_subtitles, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		fingerprint  string
		originalPath string
		converted    string
		status       string
		hasSubtitles int64
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &fingerprint, &originalPath, &converted, &status, &hasSubtitles, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:            id,
		Fingerprint:   fingerprint,
		OriginalPath:  originalPath,
		ConvertedPath: converted,
		Status:        status,
		HasSubtitles:  hasSubtitles != 0,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
