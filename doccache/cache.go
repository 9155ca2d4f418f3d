// Package doccache provides the local document cache used to reduce remote
// round-trips for read-mostly subject and article documents.
//
// Entries are stamped with the time they were cached and expire lazily after
// a fixed window: an expired entry is simply reported absent and left in
// place until it is overwritten or pruned.
package doccache

import (
	"context"
	"time"
)

// Kind identifies one of the two locally cached document categories.
type Kind string

const (
	// KindSubject holds subject outlines, keyed by slug.
	KindSubject Kind = "subject"

	// KindContent holds article content documents, keyed by derived content key.
	KindContent Kind = "content"
)

// DefaultTTL is the expiration window applied when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Cache stores serialized documents per (kind, key).
//
// Get reports absent for entries at or past their expiration window.
// Implementations must keep at most one entry per key per kind.
type Cache interface {
	// Get returns the cached document for the key, or ok=false when the
	// entry is missing or expired.
	Get(ctx context.Context, kind Kind, key string) (doc []byte, ok bool, err error)

	// Put stores the document, overwriting any prior entry for the key.
	// The write timestamp is set to the caching moment.
	Put(ctx context.Context, kind Kind, key string, doc []byte) error

	// Delete removes the entry for the key if present.
	Delete(ctx context.Context, kind Kind, key string) error
}
