// Package blobstore provides the local store for binary media attachments.
//
// Blobs are keyed by their content fingerprint and persist independently of
// the remote store so authors can preview media before a save completes.
package blobstore

import "context"

// Blob is a stored media attachment.
type Blob struct {
	// Name is the display name of the original file.
	Name string

	// MediaType is the declared media type (e.g. "image/png").
	MediaType string

	// Data is the raw payload.
	Data []byte
}

// Store persists media blobs keyed by fingerprint.
type Store interface {
	// Put inserts or overwrites the blob for the fingerprint.
	// Put is idempotent for identical fingerprints.
	Put(ctx context.Context, fingerprint string, blob Blob) error

	// Get returns the blob for the fingerprint, or ok=false when absent.
	Get(ctx context.Context, fingerprint string) (blob *Blob, ok bool, err error)

	// Delete removes the blob for the fingerprint. Removing an absent
	// blob is not an error; failures to remove an existing blob are.
	Delete(ctx context.Context, fingerprint string) error
}
