// Package contentcache implements the offline-first content subsystem of a
// study platform: a local read-through cache for subject and article
// documents, a local store for media attachments, and the reconciliation
// logic that keeps both consistent with their remote systems of record.
//
// # Loading content
//
// A [Loader] resolves the subject outline and article document a content
// page needs, consulting the local document cache first and falling back to
// the remote document store on miss or expiry:
//
//	cache, err := sqlite.Open("/var/cache/studyhive/documents.db")
//	if err != nil {
//	    return err
//	}
//	loader := contentcache.NewLoader(cache, docs)
//	res, err := loader.Load(ctx, contentcache.Params{
//	    Slug: "ap-biology", Unit: "1", Article: "3",
//	})
//
// The subject and content lookups run concurrently; each branch records its
// own error so a missing article never hides a loaded subject.
//
// # Managing attachments
//
// A [Manager] keeps an authored document's attachment list, the local blob
// store, and the remote media store mutually consistent as authors add and
// remove files:
//
//	mgr := contentcache.NewManager(local,
//	    contentcache.WithRemoteMedia(media),
//	    contentcache.WithSession(session),
//	)
//	refs, err := mgr.Attach(ctx, &question.Question, uploads)
//
// Detaching removes the reference immediately and treats both blob
// deletions as best-effort; remote deletions that cannot be issued are
// queued for a later authorized flush (see the pending package).
package contentcache
