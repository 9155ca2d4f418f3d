package pending

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhive/contentcache/blobstore"
	"github.com/studyhive/contentcache/identity"
	"github.com/studyhive/contentcache/remote"
)

// fakeBlobStore implements remote.BlobStore with function fields.
type fakeBlobStore struct {
	DeleteFunc func(ctx context.Context, key string) error
	deleted    []string
}

func (f *fakeBlobStore) Upload(context.Context, string, blobstore.Blob) error {
	return errors.New("not implemented")
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, key)
	}
	return nil
}

func (f *fakeBlobStore) DownloadURL(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestEnqueueIdempotent(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "image/png-1", ReasonUnauthorized))
	require.NoError(t, q.Enqueue(ctx, "image/png-1", ReasonDeleteFailed))

	deletions, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, deletions, 1)
	assert.Equal(t, ReasonUnauthorized, deletions[0].Reason, "first enqueue wins")
}

func TestFlushUnauthorized(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "image/png-1", ReasonUnauthorized))

	store := &fakeBlobStore{}
	_, err := q.Flush(ctx, store, &identity.User{Access: identity.AccessUser})
	assert.ErrorIs(t, err, identity.ErrUnauthorized)
	assert.Empty(t, store.deleted)

	_, err = q.Flush(ctx, store, nil)
	assert.ErrorIs(t, err, identity.ErrUnauthorized)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "queue untouched")
}

func TestFlushDrainsQueue(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "image/png-1", ReasonUnauthorized))
	require.NoError(t, q.Enqueue(ctx, "audio/mpeg-2", ReasonDeleteFailed))

	store := &fakeBlobStore{}
	flushed, err := q.Flush(ctx, store, &identity.User{Access: identity.AccessMember})
	require.NoError(t, err)
	assert.Equal(t, 2, flushed)
	assert.ElementsMatch(t, []string{"image/png-1", "audio/mpeg-2"}, store.deleted)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushAlreadyAbsentCountsAsFlushed(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "image/png-1", ReasonUnauthorized))

	store := &fakeBlobStore{
		DeleteFunc: func(context.Context, string) error { return remote.ErrNotFound },
	}
	flushed, err := q.Flush(ctx, store, &identity.User{Access: identity.AccessAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, flushed)
}

func TestFlushKeepsFailures(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "image/png-1", ReasonUnauthorized))
	require.NoError(t, q.Enqueue(ctx, "audio/mpeg-2", ReasonDeleteFailed))

	store := &fakeBlobStore{
		DeleteFunc: func(_ context.Context, key string) error {
			if key == "image/png-1" {
				return errors.New("registry down")
			}
			return nil
		},
	}
	flushed, err := q.Flush(ctx, store, &identity.User{Access: identity.AccessAdmin})
	assert.Error(t, err)
	assert.Equal(t, 1, flushed)

	deletions, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, deletions, 1)
	assert.Equal(t, "image/png-1", deletions[0].Key)
	assert.Equal(t, 1, deletions[0].Attempts)
}
