package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-registry/pkg/simpleregistry"
	"github.com/tendant/simple-registry/pkg/simpleregistry/repo/gormdb"
	repomemory "github.com/tendant/simple-registry/pkg/simpleregistry/repo/memory"
	repopg "github.com/tendant/simple-registry/pkg/simpleregistry/repo/postgres"
	fsstorage "github.com/tendant/simple-registry/pkg/simpleregistry/storage/fs"
	memorystorage "github.com/tendant/simple-registry/pkg/simpleregistry/storage/memory"
	s3storage "github.com/tendant/simple-registry/pkg/simpleregistry/storage/s3"
)

// Database types
const (
	DatabaseMemory   = "memory"
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Environment:           "development",
		DatabaseType:          DatabaseMemory,
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// ServerConfig represents configuration for the registry persistence layer.
// The HTTP listener is configured by the server app, not here.
type ServerConfig struct {
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "sqlite", "postgres"
	AutoMigrate  bool   // create user tables on startup

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabaseSQLite, DatabasePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'sqlite' or 'postgres'")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'text' or 'json', got: %s", c.LogFormat)
	}

	if _, ok := c.storageBackend(c.DefaultStorageBackend); !ok {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

func (c *ServerConfig) storageBackend(name string) (StorageBackendConfig, bool) {
	for _, backend := range c.StorageBackends {
		if backend.Name == name {
			return backend, true
		}
	}
	return StorageBackendConfig{}, false
}

// Registry holds the wired persistence components
type Registry struct {
	Dists    *simpleregistry.DistRepository
	Users    simpleregistry.UserRepository
	Versions simpleregistry.VersionLookup
	Logger   *slog.Logger

	closers []func() error
}

// Close releases database connections
func (r *Registry) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build creates the persistence components described by the configuration
func (c *ServerConfig) Build(ctx context.Context) (*Registry, error) {
	logger, err := NewLogger(c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, err
	}
	reg := &Registry{Logger: logger}

	users, err := c.buildUserRepository(reg)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("failed to build user repository: %w", err)
	}
	reg.Users = users

	versions, err := c.buildVersionLookup(ctx, reg)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("failed to build version lookup: %w", err)
	}
	reg.Versions = versions

	backendConfig, _ := c.storageBackend(c.DefaultStorageBackend)
	store, err := c.buildStorageBackend(ctx, backendConfig)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
	}

	dists, err := simpleregistry.NewDistRepository(versions, store,
		simpleregistry.WithBackendName(backendConfig.Name),
		simpleregistry.WithDistLogger(logger.With("component", "dist_repository")),
	)
	if err != nil {
		reg.Close()
		return nil, err
	}
	reg.Dists = dists

	return reg, nil
}

func (c *ServerConfig) buildUserRepository(reg *Registry) (simpleregistry.UserRepository, error) {
	dbType, dsn := gormdb.SqliteDbType, ""
	switch c.DatabaseType {
	case DatabaseSQLite:
		dsn = c.DatabaseURL
	case DatabasePostgres:
		dbType, dsn = gormdb.PostgresDbType, c.DatabaseURL
	}

	db, err := gormdb.Open(dbType, dsn)
	if err != nil {
		return nil, err
	}
	reg.closers = append(reg.closers, func() error { return gormdb.Close(db) })

	// an in-memory database has no schema until we create one
	if c.AutoMigrate || c.DatabaseType == DatabaseMemory {
		if err := gormdb.AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	return gormdb.NewUserRepository(db, reg.Logger), nil
}

// buildVersionLookup reads published versions from PostgreSQL. Memory and
// SQLite modes get an empty in-memory lookup for development; it starts empty
// on every boot and only knows versions seeded with PutPackageVersion.
func (c *ServerConfig) buildVersionLookup(ctx context.Context, reg *Registry) (simpleregistry.VersionLookup, error) {
	if c.DatabaseType != DatabasePostgres {
		reg.Logger.Warn("version lookup is in-memory, manifests resolve only for seeded versions",
			"database_type", c.DatabaseType)
		return repomemory.NewVersionRepository(), nil
	}

	pool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	reg.closers = append(reg.closers, func() error { pool.Close(); return nil })

	return repopg.NewWithPool(pool), nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(ctx context.Context, config StorageBackendConfig) (simpleregistry.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/storage"),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			Prefix:                 getString(config.Config, "prefix", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			PresignDuration:        getInt(config.Config, "presign_duration", 3600),
			DisablePresign:         getBool(config.Config, "disable_presign", false),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
