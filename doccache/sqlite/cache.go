// Package sqlite provides a SQLite-backed document cache that persists
// across sessions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/studyhive/contentcache/doccache"
)

const busyTimeoutMS = 5000

// Cache implements doccache.Cache on a local SQLite database.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the expiration window. Defaults to doccache.DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, opts ...Option) (*Cache, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &Cache{
		db:  db,
		ttl: doccache.DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}

	if err := configure(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func configure(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("configure cache db: %w", err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			kind       TEXT NOT NULL,
			key        TEXT NOT NULL,
			data       BLOB NOT NULL,
			written_at INTEGER NOT NULL,
			PRIMARY KEY (kind, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate cache db: %w", err)
	}
	return nil
}

// Get returns the cached document, or ok=false when missing or expired.
// Expired rows are left in place (lazy expiry); use Prune to remove them.
func (c *Cache) Get(ctx context.Context, kind doccache.Kind, key string) ([]byte, bool, error) {
	var (
		data      []byte
		writtenAt int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT data, written_at FROM documents WHERE kind = ? AND key = ?",
		string(kind), key,
	).Scan(&data, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached document: %w", err)
	}
	if c.now().Sub(time.UnixMilli(writtenAt)) >= c.ttl {
		return nil, false, nil
	}
	return data, true, nil
}

// Put stores the document, overwriting any prior entry for the key.
func (c *Cache) Put(ctx context.Context, kind doccache.Kind, key string, doc []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (kind, key, data, written_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, key) DO UPDATE SET
			data = excluded.data,
			written_at = excluded.written_at
	`, string(kind), key, doc, c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("cache document: %w", err)
	}
	return nil
}

// Delete removes the entry for the key if present.
func (c *Cache) Delete(ctx context.Context, kind doccache.Kind, key string) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM documents WHERE kind = ? AND key = ?", string(kind), key)
	if err != nil {
		return fmt.Errorf("delete cached document: %w", err)
	}
	return nil
}

// Prune removes all expired rows and reports how many were deleted.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).UnixMilli()
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM documents WHERE written_at <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats reports the number of rows per kind, including expired rows that
// have not been pruned yet.
func (c *Cache) Stats(ctx context.Context) (map[doccache.Kind]int, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM documents GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[doccache.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats[doccache.Kind(kind)] = n
	}
	return stats, rows.Err()
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

var _ doccache.Cache = (*Cache)(nil)
