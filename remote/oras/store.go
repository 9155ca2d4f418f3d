// Package oras provides a remote media store backed by an OCI registry.
//
// Each attachment is stored as a single-layer artifact tagged with a
// sanitized form of its attachment key, so uploads, deletions, and direct
// download URLs all resolve through the key alone.
package oras

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry"
	orasremote "oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/studyhive/contentcache/blobstore"
	"github.com/studyhive/contentcache/remote"
)

// ArtifactType marks manifests produced by this store.
const ArtifactType = "application/vnd.studyhive.media.v1"

// AnnotationKey records the original attachment key on the manifest.
const AnnotationKey = "vnd.studyhive.media.key"

// Store implements remote.BlobStore against an OCI registry repository.
type Store struct {
	repoRef    string
	plainHTTP  bool
	userAgent  string
	anonymous  bool
	username   string
	password   string
	authClient *auth.Client
}

// Option configures a Store.
type Option func(*Store)

// WithStaticCredentials sets static username/password credentials.
func WithStaticCredentials(username, password string) Option {
	return func(s *Store) {
		s.username = username
		s.password = password
	}
}

// WithAnonymous disables all authentication.
// Use this for registries where authentication is not needed.
func WithAnonymous() Option {
	return func(s *Store) {
		s.anonymous = true
	}
}

// WithPlainHTTP enables plain HTTP (no TLS) for the registry.
// This is useful for local development registries.
func WithPlainHTTP(enabled bool) Option {
	return func(s *Store) {
		s.plainHTTP = enabled
	}
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(s *Store) {
		s.userAgent = ua
	}
}

// New creates a media store for the given repository reference
// (e.g. "registry.example.com/studyhive/media").
func New(repoRef string, opts ...Option) (*Store, error) {
	if _, err := registry.ParseReference(repoRef); err != nil {
		return nil, fmt.Errorf("parse repository reference %q: %w", repoRef, err)
	}
	s := &Store{
		repoRef:   repoRef,
		userAgent: "contentcache/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.authClient = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(_ context.Context, _ string) (auth.Credential, error) {
			if s.anonymous || s.username == "" {
				return auth.EmptyCredential, nil
			}
			return auth.Credential{Username: s.username, Password: s.password}, nil
		},
		Header: http.Header{
			"User-Agent": []string{s.userAgent},
		},
	}
	return s, nil
}

// repository creates a Repository handle sharing the auth client so tokens
// are reused across requests.
func (s *Store) repository() (*orasremote.Repository, error) {
	repo, err := orasremote.NewRepository(s.repoRef)
	if err != nil {
		return nil, fmt.Errorf("parse repository reference %q: %w", s.repoRef, err)
	}
	repo.PlainHTTP = s.plainHTTP
	repo.Client = s.authClient
	return repo, nil
}

// Upload stores the blob under the attachment key.
//
// The payload is pushed by digest, wrapped in a single-layer manifest, and
// tagged with the sanitized key so later operations can resolve it.
func (s *Store) Upload(ctx context.Context, key string, blob blobstore.Blob) error {
	if key == "" {
		return fmt.Errorf("%w: attachment key is empty", remote.ErrRequestFailed)
	}
	repo, err := s.repository()
	if err != nil {
		return err
	}

	mediaType := blob.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	layer := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(blob.Data),
		Size:      int64(len(blob.Data)),
		Annotations: map[string]string{
			ocispec.AnnotationTitle: blob.Name,
		},
	}
	if err := repo.Blobs().Push(ctx, layer, bytes.NewReader(blob.Data)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return mapError(err)
	}
	if err := repo.Blobs().Push(ctx, ocispec.DescriptorEmptyJSON, bytes.NewReader(ocispec.DescriptorEmptyJSON.Data)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return mapError(err)
	}

	manifest := ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       ocispec.DescriptorEmptyJSON,
		Layers:       []ocispec.Descriptor{layer},
		Annotations: map[string]string{
			AnnotationKey: key,
		},
	}
	raw, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	manifestDesc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(raw),
		Size:      int64(len(raw)),
	}
	if err := repo.PushReference(ctx, manifestDesc, bytes.NewReader(raw), Tag(key)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return mapError(err)
	}
	return nil
}

// Delete removes the blob for the attachment key: the layer, the manifest,
// and the tag pointing at it.
func (s *Store) Delete(ctx context.Context, key string) error {
	repo, err := s.repository()
	if err != nil {
		return err
	}

	manifestDesc, manifest, err := s.resolveManifest(ctx, repo, key)
	if err != nil {
		return err
	}

	// Layers first so a partial failure cannot orphan unreachable blobs.
	for _, layer := range manifest.Layers {
		if err := repo.Blobs().Delete(ctx, layer); err != nil && !errors.Is(mapError(err), remote.ErrNotFound) {
			return mapError(err)
		}
	}
	if err := repo.Manifests().Delete(ctx, manifestDesc); err != nil {
		return mapError(err)
	}
	return nil
}

// DownloadURL resolves the direct blob URL for the attachment key:
// <scheme>://<registry>/v2/<repository>/blobs/<digest>.
func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	repo, err := s.repository()
	if err != nil {
		return "", err
	}
	_, manifest, err := s.resolveManifest(ctx, repo, key)
	if err != nil {
		return "", err
	}
	if len(manifest.Layers) == 0 {
		return "", fmt.Errorf("%w: no payload for key %q", remote.ErrNotFound, key)
	}

	ref, err := registry.ParseReference(s.repoRef)
	if err != nil {
		return "", err
	}
	scheme := "https"
	if s.plainHTTP {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/v2/%s/blobs/%s",
		scheme, ref.Host(), ref.Repository, manifest.Layers[0].Digest), nil
}

// resolveManifest resolves the tag for the key and fetches its manifest.
func (s *Store) resolveManifest(ctx context.Context, repo *orasremote.Repository, key string) (ocispec.Descriptor, *ocispec.Manifest, error) {
	desc, rc, err := repo.FetchReference(ctx, Tag(key))
	if err != nil {
		return ocispec.Descriptor{}, nil, mapError(err)
	}
	defer rc.Close()

	var manifest ocispec.Manifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return ocispec.Descriptor{}, nil, fmt.Errorf("decode manifest for key %q: %w", key, err)
	}
	return desc, &manifest, nil
}

// Tag maps an attachment key to a valid OCI tag. Keys embed media types
// containing characters tags do not allow, so anything outside the tag
// alphabet becomes an underscore.
func Tag(key string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	if len(mapped) > 123 {
		mapped = mapped[:123]
	}
	return "file_" + mapped
}

// mapError maps ORAS errors to remote sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %v", remote.ErrNotFound, err)
	}
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) && errResp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", remote.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", remote.ErrRequestFailed, err)
}

var _ remote.BlobStore = (*Store)(nil)
