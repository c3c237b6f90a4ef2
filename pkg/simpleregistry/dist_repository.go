package simpleregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// DistRepository reads and writes package artifacts on a BlobStore and
// decodes them in three tiers: raw bytes, UTF-8 text, JSON.
type DistRepository struct {
	versions VersionLookup
	store    BlobStore
	backend  string
	logger   *slog.Logger
}

// DistOption represents a functional option for configuring a DistRepository
type DistOption func(*DistRepository)

// WithDistLogger sets the logger used for write and delete operations
func WithDistLogger(logger *slog.Logger) DistOption {
	return func(r *DistRepository) {
		r.logger = logger
	}
}

// WithBackendName sets the backend name reported in StorageError values
func WithBackendName(name string) DistOption {
	return func(r *DistRepository) {
		r.backend = name
	}
}

// NewDistRepository creates a DistRepository over the given collaborators
func NewDistRepository(versions VersionLookup, store BlobStore, options ...DistOption) (*DistRepository, error) {
	if versions == nil {
		return nil, errors.New("version lookup is required")
	}
	if store == nil {
		return nil, errors.New("blob store is required")
	}

	r := &DistRepository{
		versions: versions,
		store:    store,
		backend:  "default",
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// FindPackageVersionManifest returns the full manifest of a version with the
// readme text merged in under the "readme" key. It returns nil when the
// version does not exist or has no stored manifest.
func (r *DistRepository) FindPackageVersionManifest(ctx context.Context, packageID, version string) (map[string]any, error) {
	pkgVersion, err := r.versions.FindPackageVersion(ctx, packageID, version)
	if err != nil {
		return nil, err
	}
	if pkgVersion == nil {
		return nil, nil
	}

	var (
		manifest map[string]any
		readme   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		manifest, err = r.ReadDistJSON(gctx, pkgVersion.ManifestDist)
		return err
	})
	g.Go(func() error {
		var err error
		readme, err = r.ReadDistString(gctx, pkgVersion.ReadmeDist)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if manifest == nil {
		return nil, nil
	}
	manifest["readme"] = readme
	return manifest, nil
}

// FindPackageAbbreviatedManifest returns the abbreviated manifest of a
// version, or nil when the version or its manifest does not exist.
func (r *DistRepository) FindPackageAbbreviatedManifest(ctx context.Context, packageID, version string) (map[string]any, error) {
	pkgVersion, err := r.versions.FindPackageVersion(ctx, packageID, version)
	if err != nil {
		return nil, err
	}
	if pkgVersion == nil {
		return nil, nil
	}
	return r.ReadDistJSON(ctx, pkgVersion.AbbreviatedDist)
}

// ReadDistJSON is the object-only reader used for manifests. Empty or missing
// content yields nil. Valid JSON that is not an object, including null, is
// rejected with ErrMalformedContent; use ReadDistJSONInto to decode arrays,
// strings, numbers or booleans.
func (r *DistRepository) ReadDistJSON(ctx context.Context, dist Dist) (map[string]any, error) {
	var value map[string]any
	found, err := r.ReadDistJSONInto(ctx, dist, &value)
	if err != nil || !found {
		return nil, err
	}
	if value == nil {
		// literal null
		return nil, &DistError{Path: dist.Path, Op: "read_json", Err: fmt.Errorf("%w: expected object, got null", ErrMalformedContent)}
	}
	return value, nil
}

// ReadDistJSONInto decodes the dist into v and reports whether there was
// content to decode.
func (r *DistRepository) ReadDistJSONInto(ctx context.Context, dist Dist, v any) (bool, error) {
	str, err := r.ReadDistString(ctx, dist)
	if err != nil {
		return false, err
	}
	if str == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(str), v); err != nil {
		return false, &DistError{Path: dist.Path, Op: "read_json", Err: fmt.Errorf("%w: %v", ErrMalformedContent, err)}
	}
	return true, nil
}

// ReadDistString returns the dist content as UTF-8 text. Missing content and
// empty content both yield "".
func (r *DistRepository) ReadDistString(ctx context.Context, dist Dist) (string, error) {
	data, err := r.ReadDistBytes(ctx, dist)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	return string(data), nil
}

// ReadDistBytes returns the raw dist content, or nil when nothing is stored
// at the dist path.
func (r *DistRepository) ReadDistBytes(ctx context.Context, dist Dist) ([]byte, error) {
	reader, err := r.store.Download(ctx, dist.Path)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil
		}
		return nil, r.storageError("download", dist.Path, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, r.storageError("download", dist.Path, err)
	}
	return data, nil
}

// SaveDist writes binary content to the dist path, replacing existing content.
func (r *DistRepository) SaveDist(ctx context.Context, dist Dist, content []byte) error {
	if err := r.store.Upload(ctx, dist.Path, bytes.NewReader(content)); err != nil {
		return r.storageError("upload", dist.Path, err)
	}
	r.logger.DebugContext(ctx, "saved dist", "path", dist.Path, "bytes", len(content))
	return nil
}

// SaveDistText writes text content to the dist path as-is.
func (r *DistRepository) SaveDistText(ctx context.Context, dist Dist, content string) error {
	if err := r.store.Upload(ctx, dist.Path, strings.NewReader(content)); err != nil {
		return r.storageError("upload_text", dist.Path, err)
	}
	r.logger.DebugContext(ctx, "saved dist", "path", dist.Path, "bytes", len(content))
	return nil
}

// DestroyDist removes the dist content. Removing a missing dist is not an error.
func (r *DistRepository) DestroyDist(ctx context.Context, dist Dist) error {
	err := r.store.Delete(ctx, dist.Path)
	if err != nil && !errors.Is(err, ErrObjectNotFound) {
		return r.storageError("delete", dist.Path, err)
	}
	r.logger.DebugContext(ctx, "destroyed dist", "path", dist.Path, "existed", err == nil)
	return nil
}

// DownloadDist opens the dist for download. Backends that can issue URLs
// yield a redirect URL; the others yield a stream the caller must close,
// with the object's metadata when the backend reports it. A missing dist
// yields nil in stream mode.
func (r *DistRepository) DownloadDist(ctx context.Context, dist Dist) (*Download, error) {
	url, err := r.store.GetDownloadURL(ctx, dist.Path, dist.Name)
	if err == nil {
		return &Download{URL: url}, nil
	}
	if !errors.Is(err, ErrDirectDownloadRequired) {
		return nil, r.storageError("download_url", dist.Path, err)
	}

	reader, err := r.store.Download(ctx, dist.Path)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil
		}
		return nil, r.storageError("download", dist.Path, err)
	}

	meta, err := r.store.GetObjectMeta(ctx, dist.Path)
	if err != nil {
		// the body is already open; serve it without size or etag
		r.logger.DebugContext(ctx, "dist metadata unavailable", "path", dist.Path, "err", err)
		meta = nil
	}
	return &Download{Body: reader, Meta: meta}, nil
}

func (r *DistRepository) storageError(op, key string, err error) error {
	return &StorageError{
		Backend: r.backend,
		Key:     key,
		Op:      op,
		Err:     err,
	}
}
