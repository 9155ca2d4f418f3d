package contentcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/studyhive/contentcache/doccache"
	"github.com/studyhive/contentcache/docshape"
	"github.com/studyhive/contentcache/remote"
)

// Params identifies the content a page needs: the subject slug and the
// unit/article segments of the route.
type Params struct {
	Slug    string
	Unit    string
	Article string
}

// Result carries the outcome of a Load. Each branch records its own error:
// a failed content lookup never hides a loaded subject, and vice versa.
type Result struct {
	Subject *Subject
	Content *Content

	SubjectErr error
	ContentErr error
}

// Err joins the branch errors, or nil when both branches succeeded.
func (r *Result) Err() error {
	return errors.Join(r.SubjectErr, r.ContentErr)
}

// Loader resolves subject outlines and article documents through the local
// document cache, falling back to the remote document store on miss or
// expiry and re-populating the cache on fallback.
//
// Concurrent Loads for the same key share one lookup via singleflight, so a
// cache-miss storm issues a single remote read per document.
type Loader struct {
	cache  doccache.Cache
	docs   remote.DocumentStore
	logger *slog.Logger
	group  singleflight.Group
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger used for soft failures.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader over the given cache and remote store.
func NewLoader(cache doccache.Cache, docs remote.DocumentStore, opts ...LoaderOption) *Loader {
	l := &Loader{
		cache: cache,
		docs:  docs,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

// log returns the logger, falling back to a discard logger if nil.
func (l *Loader) log() *slog.Logger {
	if l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

// Load resolves the subject outline and the article document for params.
//
// The two lookups run concurrently with no ordering dependency; Load
// returns once both have resolved, successfully or not. Branch failures are
// recorded on the Result, not returned: the returned error is non-nil only
// for invalid params.
func (l *Loader) Load(ctx context.Context, params Params) (*Result, error) {
	if params.Slug == "" {
		return nil, errors.New("contentcache: subject slug is required")
	}

	slug := FormatSlug(params.Slug)
	key := ContentKey(params.Slug, params.Unit, params.Article)

	res := &Result{}
	var g errgroup.Group
	g.Go(func() error {
		res.Subject, res.SubjectErr = l.loadSubject(ctx, slug)
		return nil
	})
	g.Go(func() error {
		res.Content, res.ContentErr = l.loadContent(ctx, key)
		return nil
	})
	_ = g.Wait()
	return res, nil
}

// LoadSubject resolves only the subject outline for a slug.
func (l *Loader) LoadSubject(ctx context.Context, slug string) (*Subject, error) {
	if slug == "" {
		return nil, errors.New("contentcache: subject slug is required")
	}
	return l.loadSubject(ctx, FormatSlug(slug))
}

func (l *Loader) loadSubject(ctx context.Context, slug string) (*Subject, error) {
	v, err, _ := l.group.Do("subject:"+slug, func() (any, error) {
		if doc, ok := l.cacheGet(ctx, doccache.KindSubject, slug); ok {
			var subject Subject
			if err := json.Unmarshal(doc, &subject); err == nil {
				return &subject, nil
			}
			l.log().Warn("discarding undecodable cached subject", "slug", slug)
		}

		raw, err := l.docs.GetDocument(ctx, remote.CollectionSubjects, slug)
		if errors.Is(err, remote.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrSubjectNotFound, slug)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch subject %q: %w", slug, err)
		}

		var subject Subject
		if err := json.Unmarshal(raw, &subject); err != nil {
			return nil, fmt.Errorf("decode subject %q: %w", slug, err)
		}
		l.cachePut(ctx, doccache.KindSubject, slug, &subject)
		return &subject, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Subject), nil
}

func (l *Loader) loadContent(ctx context.Context, key string) (*Content, error) {
	v, err, _ := l.group.Do("content:"+key, func() (any, error) {
		// Cache entries are written post-normalization, so a hit is
		// already in runtime shape.
		if doc, ok := l.cacheGet(ctx, doccache.KindContent, key); ok {
			var content Content
			if err := json.Unmarshal(doc, &content); err == nil {
				return &content, nil
			}
			l.log().Warn("discarding undecodable cached content", "key", key)
		}

		raw, err := l.docs.GetDocument(ctx, remote.CollectionPages, key)
		if errors.Is(err, remote.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrContentNotFound, key)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch content %q: %w", key, err)
		}

		var content Content
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, fmt.Errorf("decode content %q: %w", key, err)
		}
		// The remote store persists array-valued structures as indexed
		// objects; revert to runtime shape on every fallback fetch.
		if err := docshape.Revert(&content.Data); err != nil {
			return nil, fmt.Errorf("revert content %q: %w", key, err)
		}
		l.cachePut(ctx, doccache.KindContent, key, &content)
		return &content, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Content), nil
}

// cacheGet reads through the document cache, degrading any cache failure to
// a miss.
func (l *Loader) cacheGet(ctx context.Context, kind doccache.Kind, key string) ([]byte, bool) {
	doc, ok, err := l.cache.Get(ctx, kind, key)
	if err != nil {
		l.log().Warn("document cache read failed", "kind", kind, "key", key, "error", err)
		return nil, false
	}
	return doc, ok
}

// cachePut populates the cache after a fallback fetch. Failures are logged
// only; the fetched document is still returned to the caller.
func (l *Loader) cachePut(ctx context.Context, kind doccache.Kind, key string, doc any) {
	raw, err := json.Marshal(doc)
	if err != nil {
		l.log().Warn("document cache encode failed", "kind", kind, "key", key, "error", err)
		return
	}
	if err := l.cache.Put(ctx, kind, key, raw); err != nil {
		l.log().Warn("document cache write failed", "kind", kind, "key", key, "error", err)
	}
}
