// Package disk provides a disk-backed media blob store.
package disk

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/studyhive/contentcache/blobstore"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700

	blobIDPrefix = "file_"
	metaSuffix   = ".json"
)

// Store implements blobstore.Store on the local filesystem.
//
// Each blob is written as a payload file plus a JSON sidecar carrying the
// display name and media type. Payloads are optionally zstd-compressed,
// except for media types whose formats are already compressed.
type Store struct {
	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
	compress       bool
}

// metadata is the sidecar record for a stored blob.
type metadata struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MediaType  string `json:"mediaType"`
	Size       int64  `json:"size"`
	Compressed bool   `json:"compressed,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(s *Store) {
		s.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for store directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithCompression enables zstd compression for compressible payloads.
func WithCompression(enabled bool) Option {
	return func(s *Store) {
		s.compress = enabled
	}
}

// New creates a disk-backed blob store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("blob store dir is empty")
	}
	s := &Store{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, err
	}
	return s, nil
}

// Put inserts or overwrites the blob for the fingerprint.
func (s *Store) Put(ctx context.Context, fingerprint string, blob blobstore.Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fingerprint == "" {
		return errors.New("fingerprint is empty")
	}

	payload := blob.Data
	compressed := false
	if s.compress && !skipCompression(blob.MediaType) {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("init compressor: %w", err)
		}
		payload = enc.EncodeAll(blob.Data, nil)
		_ = enc.Close()
		compressed = true
	}

	path := s.path(fingerprint)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return err
	}

	if err := writeAtomic(dir, path, payload); err != nil {
		return err
	}

	meta := metadata{
		ID:         blobIDPrefix + fingerprint,
		Name:       blob.Name,
		MediaType:  blob.MediaType,
		Size:       int64(len(blob.Data)),
		Compressed: compressed,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(dir, path+metaSuffix, raw)
}

// Get returns the blob for the fingerprint, or ok=false when absent.
func (s *Store) Get(ctx context.Context, fingerprint string) (*blobstore.Blob, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path := s.path(fingerprint)

	raw, err := os.ReadFile(path + metaSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blob metadata: %w", err)
	}
	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, false, fmt.Errorf("decode blob metadata: %w", err)
	}

	payload, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blob payload: %w", err)
	}

	if meta.Compressed {
		dec, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, false, fmt.Errorf("init decompressor: %w", err)
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, false, fmt.Errorf("decompress blob: %w", err)
		}
	}

	return &blobstore.Blob{
		Name:      meta.Name,
		MediaType: meta.MediaType,
		Data:      payload,
	}, true, nil
}

// Delete removes the blob for the fingerprint.
func (s *Store) Delete(ctx context.Context, fingerprint string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(fingerprint)

	if err := os.Remove(path + metaSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob metadata: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob payload: %w", err)
	}
	return nil
}

// path maps a fingerprint to its payload path. Fingerprints contain media
// types with slashes, so paths are derived from a hash of the blob id rather
// than the raw key.
func (s *Store) path(fingerprint string) string {
	sum := sha256.Sum256([]byte(blobIDPrefix + fingerprint))
	name := hex.EncodeToString(sum[:])
	if s.shardPrefixLen <= 0 {
		return filepath.Join(s.dir, name)
	}
	prefixLen := s.shardPrefixLen
	if prefixLen > len(name) {
		prefixLen = len(name)
	}
	return filepath.Join(s.dir, name[:prefixLen], name)
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "blob-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// skipCompression reports whether a media type's format is already
// compressed and would not benefit from zstd.
func skipCompression(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	_, ok := compressedMediaTypes[mt]
	return ok
}

var compressedMediaTypes = map[string]struct{}{
	"audio/aac":        {},
	"audio/flac":       {},
	"audio/mp4":        {},
	"audio/mpeg":       {},
	"audio/ogg":        {},
	"audio/opus":       {},
	"audio/webm":       {},
	"image/avif":       {},
	"image/gif":        {},
	"image/heic":       {},
	"image/jpeg":       {},
	"image/png":        {},
	"image/webp":       {},
	"video/mp4":        {},
	"video/webm":       {},
	"video/x-m4v":      {},
	"video/x-matroska": {},
}

var _ blobstore.Store = (*Store)(nil)
