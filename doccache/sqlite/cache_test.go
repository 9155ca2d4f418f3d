package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhive/contentcache/doccache"
)

func openTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, doccache.KindSubject, "ap-biology", []byte(`{"title":"AP Biology","units":[]}`)))

	doc, ok, err := c.Get(ctx, doccache.KindSubject, "ap-biology")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"AP Biology","units":[]}`, string(doc))
}

func TestGetMissing(t *testing.T) {
	c := openTestCache(t)

	_, ok, err := c.Get(context.Background(), doccache.KindContent, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverwriteKeepsOneRow(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, doccache.KindContent, "k", []byte(`{"v":1}`)))
	require.NoError(t, c.Put(ctx, doccache.KindContent, "k", []byte(`{"v":2}`)))

	doc, ok, err := c.Get(ctx, doccache.KindContent, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(doc))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[doccache.KindContent])
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := openTestCache(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, doccache.KindSubject, "ap-biology", []byte(`{}`)))

	now = now.Add(doccache.DefaultTTL - time.Second)
	_, ok, err := c.Get(ctx, doccache.KindSubject, "ap-biology")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, err = c.Get(ctx, doccache.KindSubject, "ap-biology")
	require.NoError(t, err)
	assert.False(t, ok)

	// Lazy expiry: the row survives until pruned.
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[doccache.KindSubject])

	pruned, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats[doccache.KindSubject])
}

func TestPruneKeepsFreshRows(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := openTestCache(t, WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, doccache.KindSubject, "old", []byte(`{}`)))
	now = now.Add(2 * time.Hour)
	require.NoError(t, c.Put(ctx, doccache.KindSubject, "fresh", []byte(`{}`)))

	pruned, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	_, ok, err := c.Get(ctx, doccache.KindSubject, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, doccache.KindContent, "k", []byte(`{"v":1}`)))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	doc, ok, err := c.Get(ctx, doccache.KindContent, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(doc))
}
