// Package statscache persists get_user_stats/get_database_stats results
// in a small on-disk SQLite database, keyed by a fingerprint of the post
// CSV's mtime and size, so a daemon restart against an unchanged corpus
// skips recomputation. The CSV remains the sole canonical source; the
// cache is rebuilt whenever its fingerprint goes stale.
package statscache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)
)

// Cache wraps a SQLite-backed key/value store of precomputed stats
// payloads, one row per fingerprint.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite cache at path. An empty
// path opens an in-memory cache, useful for tests.
func Open(path string) (*Cache, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open stats cache: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stats_cache (
			cache_key    TEXT NOT NULL,
			fingerprint  TEXT NOT NULL,
			payload      TEXT NOT NULL,
			PRIMARY KEY (cache_key)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create stats cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Fingerprint derives a cache-invalidation key from a source file's size
// and modification time.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano()), nil
}

// Get looks up cacheKey and unmarshals its payload into dest, reporting
// a miss if absent or if its stored fingerprint no longer matches.
func (c *Cache) Get(cacheKey, fingerprint string, dest any) (bool, error) {
	var storedFingerprint, payload string
	err := c.db.QueryRow(`SELECT fingerprint, payload FROM stats_cache WHERE cache_key = ?`, cacheKey).
		Scan(&storedFingerprint, &payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query stats cache: %w", err)
	}
	if storedFingerprint != fingerprint {
		return false, nil
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return false, fmt.Errorf("decode cached payload: %w", err)
	}
	return true, nil
}

// Put upserts cacheKey's payload and fingerprint.
func (c *Cache) Put(cacheKey, fingerprint string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = c.db.Exec(`
		INSERT INTO stats_cache (cache_key, fingerprint, payload) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET fingerprint = excluded.fingerprint, payload = excluded.payload
	`, cacheKey, fingerprint, string(payload))
	if err != nil {
		return fmt.Errorf("write stats cache: %w", err)
	}
	return nil
}
