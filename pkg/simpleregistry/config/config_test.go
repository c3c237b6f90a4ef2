package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-registry/pkg/simpleregistry"
	repomemory "github.com/tendant/simple-registry/pkg/simpleregistry/repo/memory"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DatabaseMemory, cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.DefaultStorageBackend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Options(t *testing.T) {
	t.Run("Database", func(t *testing.T) {
		cfg, err := Load(WithDatabase(DatabasePostgres, "postgres://localhost/registry"))
		require.NoError(t, err)
		assert.Equal(t, DatabasePostgres, cfg.DatabaseType)
		assert.Equal(t, "postgres://localhost/registry", cfg.DatabaseURL)

		_, err = Load(WithDatabase(DatabaseSQLite, ""))
		assert.Error(t, err)

		_, err = Load(WithDatabase("mysql", "mysql://localhost"))
		assert.Error(t, err)
	})

	t.Run("FilesystemStorage", func(t *testing.T) {
		cfg, err := Load(
			WithFilesystemStorage("", "/data/dists", "https://cdn.example.com"),
			WithDefaultStorage("fs"),
		)
		require.NoError(t, err)
		backend, ok := cfg.storageBackend("fs")
		require.True(t, ok)
		assert.Equal(t, "/data/dists", backend.Config["base_dir"])
		assert.Equal(t, "https://cdn.example.com", backend.Config["url_prefix"])
	})

	t.Run("S3Storage", func(t *testing.T) {
		cfg, err := Load(
			WithS3Storage("", "registry", ""),
			WithS3Endpoint("", "http://localhost:9000", true),
			WithDefaultStorage("s3"),
		)
		require.NoError(t, err)
		backend, ok := cfg.storageBackend("s3")
		require.True(t, ok)
		assert.Equal(t, "us-east-1", backend.Config["region"])
		assert.Equal(t, "http://localhost:9000", backend.Config["endpoint"])
		assert.Equal(t, true, backend.Config["use_path_style"])

		_, err = Load(WithS3Endpoint("missing", "http://localhost:9000", true))
		assert.Error(t, err)
	})

	t.Run("UnknownDefaultStorage", func(t *testing.T) {
		_, err := Load(WithDefaultStorage("nfs"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found in configured backends")
	})

	t.Run("Logging", func(t *testing.T) {
		_, err := Load(WithLogging("trace", "text"))
		assert.Error(t, err)

		_, err = Load(WithLogging("info", "xml"))
		assert.Error(t, err)

		cfg, err := Load(WithLogging("warn", "json"))
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
	})
}

func TestBuild_Memory(t *testing.T) {
	cfg, err := Load(WithLogging("error", "text"))
	require.NoError(t, err)

	ctx := context.Background()
	reg, err := cfg.Build(ctx)
	require.NoError(t, err)
	defer reg.Close()

	require.NotNil(t, reg.Dists)
	require.NotNil(t, reg.Users)
	require.NotNil(t, reg.Versions)

	dist := simpleregistry.Dist{Path: "/foo/1.0.0/package.json"}
	require.NoError(t, reg.Dists.SaveDistText(ctx, dist, `{"name":"foo"}`))
	manifest, err := reg.Dists.ReadDistJSON(ctx, dist)
	require.NoError(t, err)
	assert.Equal(t, "foo", manifest["name"])

	result, err := reg.Users.SaveUser(ctx, simpleregistry.NewUser("alice", "alice@example.com"))
	require.NoError(t, err)
	assert.True(t, result.Inserted())
}

func TestBuild_SQLiteUsesInMemoryVersions(t *testing.T) {
	cfg, err := Load(
		WithDatabase(DatabaseSQLite, filepath.Join(t.TempDir(), "registry.db")),
		WithAutoMigrate(true),
		WithLogging("error", "text"),
	)
	require.NoError(t, err)

	ctx := context.Background()
	reg, err := cfg.Build(ctx)
	require.NoError(t, err)
	defer reg.Close()

	versions, ok := reg.Versions.(*repomemory.VersionRepository)
	require.True(t, ok, "expected in-memory version lookup, got %T", reg.Versions)

	manifest, err := reg.Dists.FindPackageVersionManifest(ctx, "pkg-1", "1.0.0")
	require.NoError(t, err)
	assert.Nil(t, manifest)

	dist := simpleregistry.Dist{Path: "/foo/1.0.0/package.json"}
	require.NoError(t, reg.Dists.SaveDistText(ctx, dist, `{"name":"foo"}`))
	versions.PutPackageVersion(simpleregistry.PackageVersion{
		PackageID:    "pkg-1",
		Version:      "1.0.0",
		ManifestDist: dist,
		ReadmeDist:   simpleregistry.Dist{Path: "/foo/1.0.0/README.md"},
	})

	manifest, err = reg.Dists.FindPackageVersionManifest(ctx, "pkg-1", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "foo", manifest["name"])
}

func TestBuild_Filesystem(t *testing.T) {
	cfg, err := Load(
		WithFilesystemStorage("local", t.TempDir(), "http://localhost:7001/files"),
		WithDefaultStorage("local"),
		WithLogging("error", "text"),
	)
	require.NoError(t, err)

	ctx := context.Background()
	reg, err := cfg.Build(ctx)
	require.NoError(t, err)
	defer reg.Close()

	download, err := reg.Dists.DownloadDist(ctx, simpleregistry.Dist{Name: "foo.tgz", Path: "/foo/-/foo.tgz"})
	require.NoError(t, err)
	require.NotNil(t, download)
	assert.True(t, download.IsRedirect())
}

func TestBuild_UnsupportedStorage(t *testing.T) {
	cfg, err := Load(WithLogging("error", "text"))
	require.NoError(t, err)
	cfg.StorageBackends = append(cfg.StorageBackends, StorageBackendConfig{Name: "gcs", Type: "gcs"})
	cfg.DefaultStorageBackend = "gcs"

	_, err = cfg.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend type")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), -4))

	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}
