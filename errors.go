package contentcache

import (
	"errors"

	"github.com/studyhive/contentcache/identity"
	"github.com/studyhive/contentcache/remote"
)

// Sentinel errors for loader and manager operations.
var (
	// ErrSubjectNotFound is returned when a subject is absent from both
	// the cache and the remote store.
	ErrSubjectNotFound = errors.New("contentcache: subject not found")

	// ErrContentNotFound is returned when an article document is absent
	// from both the cache and the remote store.
	ErrContentNotFound = errors.New("contentcache: content not found")

	// ErrUnsupportedMedia is returned when none of the candidate files
	// are of an accepted media type.
	ErrUnsupportedMedia = errors.New("contentcache: unsupported media type")
)

// Errors re-exported from collaborator packages.
var (
	// ErrRemoteNotFound is returned by remote store operations on absent
	// documents or blobs.
	ErrRemoteNotFound = remote.ErrNotFound

	// ErrUnauthorized is returned when the acting user lacks the access
	// tier an operation requires.
	ErrUnauthorized = identity.ErrUnauthorized
)
