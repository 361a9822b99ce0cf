// Package storage provides the SQLite implementation of the cache port.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteStorage implements the ports.CacheStore interface using SQLite.
type sqliteStorage struct {
	db *sql.DB
}

// Ensure sqliteStorage implements ports.CacheStore.
var _ ports.CacheStore = (*sqliteStorage)(nil)

// New creates a new SQLite cache store.
func New(dbPath string) (ports.CacheStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 2000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	storage := &sqliteStorage{db: db}

	if err := storage.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// NewMemory creates a new in-memory SQLite cache store for testing.
func NewMemory() (ports.CacheStore, error) {
	return New(":memory:")
}

// Close closes the database connection.
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// Migrate creates the database schema.
func (s *sqliteStorage) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		items TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_entries_ts ON cache_entries(ts);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Get returns the entry for key.
func (s *sqliteStorage) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	query := `SELECT key, ts, items FROM cache_entries WHERE key = ?`

	var entry domain.CacheEntry
	var ts int64
	var items string

	err := s.db.QueryRowContext(ctx, query, key).Scan(&entry.Key, &ts, &items)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry.Timestamp = time.UnixMilli(ts)
	entry.Items = []byte(items)
	return &entry, nil
}

// Put stores or replaces an entry.
func (s *sqliteStorage) Put(ctx context.Context, entry domain.CacheEntry) error {
	if entry.Key == "" {
		return fmt.Errorf("failed to write cache entry: empty key")
	}

	query := `
		INSERT INTO cache_entries (key, ts, items)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET ts = excluded.ts, items = excluded.items
	`

	items := string(entry.Items)
	if items == "" {
		items = "[]"
	}

	_, err := s.db.ExecContext(ctx, query, entry.Key, entry.Timestamp.UnixMilli(), items)
	if err != nil {
		if isBusyError(err) {
			return fmt.Errorf("cache is locked by another process: %w", err)
		}
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes one entry.
func (s *sqliteStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// List returns the entries whose key starts with prefix, newest first.
func (s *sqliteStorage) List(ctx context.Context, prefix string) ([]domain.CacheEntry, error) {
	query := `
		SELECT key, ts, items
		FROM cache_entries
		WHERE substr(key, 1, ?) = ?
		ORDER BY ts DESC, key
	`

	rows, err := s.db.QueryContext(ctx, query, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.CacheEntry
	for rows.Next() {
		var entry domain.CacheEntry
		var ts int64
		var items string
		if err := rows.Scan(&entry.Key, &ts, &items); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entry.Timestamp = time.UnixMilli(ts)
		entry.Items = []byte(items)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Clear removes every entry.
func (s *sqliteStorage) Clear(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// isBusyError checks if an error is a database-locked condition.
func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
