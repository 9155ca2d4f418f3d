package contentcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studyhive/contentcache/blobstore"
	"github.com/studyhive/contentcache/identity"
	"github.com/studyhive/contentcache/pending"
	"github.com/studyhive/contentcache/remote"
)

// UserSource resolves the acting user for authorization checks.
// *identity.Session implements it.
type UserSource interface {
	CurrentUser(ctx context.Context) (*identity.User, error)
}

// Manager keeps an authored document's attachment list, the local blob
// store, and the remote media store mutually consistent as authors add and
// remove files.
//
// Manager does not serialize calls: the caller is responsible for
// sequencing attach/detach on the same input field.
type Manager struct {
	local   blobstore.Store
	media   remote.BlobStore
	session UserSource
	queue   *pending.Queue
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRemoteMedia sets the remote media store used for deletions. Without
// it, detach touches only local state and every remote deletion is queued.
func WithRemoteMedia(media remote.BlobStore) ManagerOption {
	return func(m *Manager) {
		m.media = media
	}
}

// WithSession sets the source of the acting user for authorization checks.
// Without it, every caller is treated as unprivileged.
func WithSession(session UserSource) ManagerOption {
	return func(m *Manager) {
		m.session = session
	}
}

// WithPendingQueue sets the queue that records remote deletions which could
// not be issued, for a later authorized flush.
func WithPendingQueue(queue *pending.Queue) ManagerOption {
	return func(m *Manager) {
		m.queue = queue
	}
}

// WithManagerLogger sets the logger used for best-effort failures.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given local blob store.
func NewManager(local blobstore.Store, opts ...ManagerOption) *Manager {
	m := &Manager{local: local}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

func (m *Manager) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// Attach stores the accepted candidate files and appends a reference for
// each to the input field, de-duplicating by fingerprint: a file whose
// fingerprint the field already references is skipped entirely.
//
// Only image/* and audio/* files are accepted. When no candidate passes the
// filter, Attach returns ErrUnsupportedMedia and stores nothing. It returns
// the field's updated reference list for re-render.
func (m *Manager) Attach(ctx context.Context, field *QuestionInput, uploads []Upload) ([]AttachmentReference, error) {
	if field == nil {
		return nil, errors.New("contentcache: input field is nil")
	}
	if len(uploads) == 0 {
		return field.Files, nil
	}

	accepted := make([]Upload, 0, len(uploads))
	for _, u := range uploads {
		if acceptedMediaType(u.MediaType) {
			accepted = append(accepted, u)
		} else {
			m.log().Warn("rejecting upload of unsupported media type",
				"name", u.Name, "mediaType", u.MediaType)
		}
	}
	if len(accepted) == 0 {
		return field.Files, fmt.Errorf("%w: expected image or audio", ErrUnsupportedMedia)
	}

	for _, u := range accepted {
		key := Fingerprint(u.MediaType, u.LastModified)
		if referenced(field.Files, key) {
			continue
		}
		err := m.local.Put(ctx, key, blobstore.Blob{
			Name:      u.Name,
			MediaType: u.MediaType,
			Data:      u.Data,
		})
		if err != nil {
			// The reference is still appended: the document save is
			// the source of truth and the preview degrades gracefully.
			m.log().Warn("local blob store write failed", "key", key, "error", err)
		}
		field.Files = append(field.Files, AttachmentReference{Key: key, Name: u.Name})
	}
	return field.Files, nil
}

// Detach removes the reference with the given fingerprint from the field
// and issues best-effort deletions against the local and remote blob
// stores.
//
// The reference removal is synchronous and authoritative for the caller's
// state: it holds regardless of how the deletions fare. Local deletion
// failures are logged only. Remote deletion requires elevated access; an
// unauthorized detach (or a failed remote deletion) queues the key on the
// pending queue and, for the unauthorized case, reports ErrUnauthorized —
// after the local work is already done.
func (m *Manager) Detach(ctx context.Context, field *QuestionInput, key string) error {
	if field == nil {
		return errors.New("contentcache: input field is nil")
	}

	kept := field.Files[:0]
	for _, ref := range field.Files {
		if ref.Key != key {
			kept = append(kept, ref)
		}
	}
	field.Files = kept

	if err := m.local.Delete(ctx, key); err != nil {
		m.log().Warn("local blob delete failed", "key", key, "error", err)
	}

	user := m.currentUser(ctx)
	if user == nil || !user.Access.CanManageMedia() {
		m.enqueue(ctx, key, pending.ReasonUnauthorized)
		return fmt.Errorf("%w: remote media deletion requires elevated access", ErrUnauthorized)
	}
	if m.media == nil {
		m.enqueue(ctx, key, pending.ReasonDeleteFailed)
		return nil
	}
	if err := m.media.Delete(ctx, key); err != nil && !errors.Is(err, remote.ErrNotFound) {
		m.log().Warn("remote blob delete failed", "key", key, "error", err)
		m.enqueue(ctx, key, pending.ReasonDeleteFailed)
	}
	return nil
}

// LocalFile resolves a locally stored blob for preview rendering. It fails
// soft: any store error is logged and reported as absent.
func (m *Manager) LocalFile(ctx context.Context, key string) (*blobstore.Blob, bool) {
	blob, ok, err := m.local.Get(ctx, key)
	if err != nil {
		m.log().Warn("local blob read failed", "key", key, "error", err)
		return nil, false
	}
	return blob, ok
}

// FlushPending drains the pending deletion queue on behalf of the current
// user. It reports how many deletions went through.
func (m *Manager) FlushPending(ctx context.Context) (int, error) {
	if m.queue == nil {
		return 0, nil
	}
	if m.media == nil {
		return 0, errors.New("contentcache: no remote media store configured")
	}
	return m.queue.Flush(ctx, m.media, m.currentUser(ctx))
}

// currentUser resolves the acting user, degrading resolution failures to
// signed-out.
func (m *Manager) currentUser(ctx context.Context) *identity.User {
	if m.session == nil {
		return nil
	}
	user, err := m.session.CurrentUser(ctx)
	if err != nil {
		m.log().Warn("resolving current user failed", "error", err)
		return nil
	}
	return user
}

func (m *Manager) enqueue(ctx context.Context, key, reason string) {
	if m.queue == nil {
		return
	}
	if err := m.queue.Enqueue(ctx, key, reason); err != nil {
		m.log().Warn("queueing remote deletion failed", "key", key, "error", err)
	}
}

// acceptedMediaType reports whether a candidate file may be attached.
func acceptedMediaType(mediaType string) bool {
	mt := strings.ToLower(mediaType)
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "audio/")
}

func referenced(refs []AttachmentReference, key string) bool {
	for _, ref := range refs {
		if ref.Key == key {
			return true
		}
	}
	return false
}
