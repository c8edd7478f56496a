package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps persisted entries in a single SQLite database
type SQLiteStore struct {
	db         *sql.DB
	maxEntries int
}

// OpenSQLiteStore opens or creates the database at path
func OpenSQLiteStore(path string, maxEntries int) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the background tier-3 writes queue here
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			hash TEXT PRIMARY KEY,
			logical_key TEXT NOT NULL,
			value_json BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			ttl_ms INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0,
			size INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache_entries table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cache_entries_created_at ON cache_entries(created_at)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache index: %w", err)
	}

	return &SQLiteStore{db: db, maxEntries: maxEntries}, nil
}

func (s *SQLiteStore) Get(hash string) (*Entry, bool, error) {
	var (
		e         Entry
		value     []byte
		createdAt int64
		ttlMs     int64
	)
	err := s.db.QueryRow(`
		SELECT hash, logical_key, value_json, created_at, ttl_ms, access_count, size
		FROM cache_entries
		WHERE hash = ?
	`, hash).Scan(&e.Hash, &e.Key, &value, &createdAt, &ttlMs, &e.AccessCount, &e.Size)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	e.Value = value
	e.CreatedAt = time.Unix(0, createdAt)
	e.TTL = time.Duration(ttlMs) * time.Millisecond
	return &e, true, nil
}

func (s *SQLiteStore) Put(e *Entry) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO cache_entries (hash, logical_key, value_json, created_at, ttl_ms, access_count, size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Hash, e.Key, []byte(e.Value), e.CreatedAt.UnixNano(), e.TTL.Milliseconds(), e.AccessCount, e.Size)
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}

	if s.maxEntries > 0 {
		if _, err := s.db.Exec(`
			DELETE FROM cache_entries WHERE hash IN (
				SELECT hash FROM cache_entries
				ORDER BY created_at DESC
				LIMIT -1 OFFSET ?
			)
		`, s.maxEntries); err != nil {
			return fmt.Errorf("failed to evict cache entries: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Delete(hash string) error {
	_, err := s.db.Exec("DELETE FROM cache_entries WHERE hash = ?", hash)
	return err
}

func (s *SQLiteStore) Keys() ([]StoredKey, error) {
	rows, err := s.db.Query("SELECT hash, logical_key FROM cache_entries")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []StoredKey
	for rows.Next() {
		var k StoredKey
		if err := rows.Scan(&k.Hash, &k.Key); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec("DELETE FROM cache_entries")
	return err
}

func (s *SQLiteStore) Len() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM cache_entries").Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
