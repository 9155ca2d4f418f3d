// Package remote defines the external collaborators of the caching
// subsystem: the cloud document database that is the system of record for
// subject and article documents, and the cloud object store that is the
// system of record for media files.
package remote

import (
	"context"
	"errors"

	"github.com/studyhive/contentcache/blobstore"
)

// Collections used by the platform's document store.
const (
	// CollectionSubjects holds subject outlines, keyed by slug.
	CollectionSubjects = "subjects"

	// CollectionPages holds article content documents, keyed by derived
	// content key.
	CollectionPages = "pages"

	// CollectionUsers holds user records, keyed by uid.
	CollectionUsers = "users"
)

// Sentinel errors for remote store operations.
var (
	// ErrNotFound is returned when a document or blob does not exist remotely.
	ErrNotFound = errors.New("remote: not found")

	// ErrRequestFailed is returned when a remote operation fails for any
	// reason other than absence.
	ErrRequestFailed = errors.New("remote: request failed")
)

// DocumentStore is a key-value document interface over the remote
// document database.
type DocumentStore interface {
	// GetDocument returns the raw document, or ErrNotFound.
	GetDocument(ctx context.Context, collection, id string) ([]byte, error)

	// PutDocument creates or replaces the document.
	PutDocument(ctx context.Context, collection, id string, doc []byte) error

	// DeleteDocument removes the document. Deleting an absent document
	// returns ErrNotFound.
	DeleteDocument(ctx context.Context, collection, id string) error
}

// BlobStore is the remote system of record for media files.
type BlobStore interface {
	// Upload stores the blob under the attachment key.
	Upload(ctx context.Context, key string, blob blobstore.Blob) error

	// Delete removes the blob for the attachment key.
	// Deleting an absent blob returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// DownloadURL resolves a direct download URL for the attachment key.
	DownloadURL(ctx context.Context, key string) (string, error)
}
