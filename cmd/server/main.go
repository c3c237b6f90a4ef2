package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-registry/pkg/simpleregistry/api"
	"github.com/tendant/simple-registry/pkg/simpleregistry/config"
)

// Config holds the settings owned by this executable. Persistence settings
// (DATABASE_URL, STORAGE_URL, LOG_LEVEL, ...) are read by config.WithEnv
// using EnvPrefix.
type Config struct {
	EnvPrefix   string `env:"REGISTRY_ENV_PREFIX" env-default:""`
	RoutePrefix string `env:"REGISTRY_ROUTE_PREFIX" env-default:"/"`
	FilesDir    string `env:"REGISTRY_FILES_DIR" env-default:""`
	FilesURL    string `env:"REGISTRY_FILES_URL" env-default:""`
}

func (c Config) options() []config.Option {
	opts := []config.Option{config.WithEnv(c.EnvPrefix)}
	if c.FilesDir != "" {
		opts = append(opts,
			config.WithFilesystemStorage("fs", c.FilesDir, c.FilesURL),
			config.WithDefaultStorage("fs"),
		)
	}
	return opts
}

func main() {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(cfg.options()...)
	if err != nil {
		slog.Error("Invalid registry configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	registry, err := serverConfig.Build(ctx)
	if err != nil {
		slog.Error("Failed to initialize registry", "err", err)
		os.Exit(1)
	}
	defer registry.Close()

	logger := registry.Logger
	slog.SetDefault(logger)
	logger.Info("registry persistence ready",
		"database", serverConfig.DatabaseType,
		"storage", serverConfig.DefaultStorageBackend,
		"environment", serverConfig.Environment,
	)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	registryHandler := api.NewRegistryHandler(registry.Dists, registry.Users, logger.With("component", "registry_handler"))
	server.R.Mount(cfg.RoutePrefix, registryHandler.Routes())

	server.Run()
}
