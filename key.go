package contentcache

import (
	"strconv"
	"strings"
	"time"
)

// ContentKey derives the identity of an article content document from its
// route parameters. The same derivation runs on the read side and the write
// side so both agree on where a document lives in the remote store and in
// the local cache.
func ContentKey(slug, unit, article string) string {
	parts := []string{FormatSlug(slug), FormatSlug(unit), FormatSlug(article)}
	return strings.Join(parts, "-")
}

// FormatSlug normalizes a route segment: lowercased, trimmed, interior
// whitespace collapsed to single dashes.
func FormatSlug(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(fields, "-")
}

// Fingerprint derives the heuristic identity key for an uploaded file from
// its declared media type and last-modified time. Two files with equal type
// and modification time are treated as the same attachment.
func Fingerprint(mediaType string, lastModified time.Time) string {
	return mediaType + "-" + strconv.FormatInt(lastModified.UnixMilli(), 10)
}

// BlobID maps a fingerprint to its local blob store identifier.
func BlobID(fingerprint string) string {
	return "file_" + fingerprint
}
