// Package pending persists remote media deletions that could not be issued
// immediately, so a detach by a non-privileged user never strands a blob in
// the remote store forever.
//
// Deletions accumulate in a local SQLite queue and are drained by an
// authorized caller, either in-session or via the maintenance CLI.
package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/studyhive/contentcache/identity"
	"github.com/studyhive/contentcache/remote"
)

// Deletion reasons recorded at enqueue time.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonDeleteFailed = "delete-failed"
)

// Deletion is a queued remote deletion.
type Deletion struct {
	Key        string
	Reason     string
	EnqueuedAt time.Time
	Attempts   int
}

// Queue is a SQLite-backed deletion queue.
type Queue struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// Open opens (creating if needed) the queue database at path.
func Open(path string, opts ...Option) (*Queue, error) {
	if path == "" {
		return nil, errors.New("queue path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	db.SetMaxOpenConns(1)

	q := &Queue{db: db, now: time.Now}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(q)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure queue db: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_deletions (
			key         TEXT PRIMARY KEY,
			reason      TEXT NOT NULL,
			enqueued_at INTEGER NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate queue db: %w", err)
	}
	return q, nil
}

// Enqueue records a deletion for the attachment key. Re-enqueuing a key
// already queued is a no-op.
func (q *Queue) Enqueue(ctx context.Context, key, reason string) error {
	if key == "" {
		return errors.New("attachment key is empty")
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO pending_deletions (key, reason, enqueued_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO NOTHING
	`, key, reason, q.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("enqueue deletion: %w", err)
	}
	return nil
}

// List returns the queued deletions in enqueue order.
func (q *Queue) List(ctx context.Context) ([]Deletion, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT key, reason, enqueued_at, attempts
		FROM pending_deletions ORDER BY enqueued_at, key
	`)
	if err != nil {
		return nil, fmt.Errorf("list deletions: %w", err)
	}
	defer rows.Close()

	var deletions []Deletion
	for rows.Next() {
		var (
			d  Deletion
			at int64
		)
		if err := rows.Scan(&d.Key, &d.Reason, &at, &d.Attempts); err != nil {
			return nil, err
		}
		d.EnqueuedAt = time.UnixMilli(at)
		deletions = append(deletions, d)
	}
	return deletions, rows.Err()
}

// Len reports the number of queued deletions.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_deletions").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count deletions: %w", err)
	}
	return n, nil
}

// Flush issues every queued deletion against the remote store on behalf of
// user. It returns identity.ErrUnauthorized without touching the queue when
// the user may not manage media.
//
// A deletion leaves the queue once the remote store acknowledges it or
// reports the blob already absent. Failed deletions stay queued with their
// attempt count bumped; Flush keeps going and reports failures joined.
func (q *Queue) Flush(ctx context.Context, store remote.BlobStore, user *identity.User) (int, error) {
	if user == nil || !user.Access.CanManageMedia() {
		return 0, fmt.Errorf("%w: flushing deletions requires elevated access", identity.ErrUnauthorized)
	}

	deletions, err := q.List(ctx)
	if err != nil {
		return 0, err
	}

	flushed := 0
	var errs []error
	for _, d := range deletions {
		err := store.Delete(ctx, d.Key)
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			if _, err := q.db.ExecContext(ctx,
				"DELETE FROM pending_deletions WHERE key = ?", d.Key); err != nil {
				errs = append(errs, fmt.Errorf("dequeue %q: %w", d.Key, err))
				continue
			}
			flushed++
			continue
		}
		errs = append(errs, fmt.Errorf("delete %q: %w", d.Key, err))
		if _, err := q.db.ExecContext(ctx,
			"UPDATE pending_deletions SET attempts = attempts + 1 WHERE key = ?", d.Key); err != nil {
			errs = append(errs, fmt.Errorf("record attempt for %q: %w", d.Key, err))
		}
	}
	return flushed, errors.Join(errs...)
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}
