package runtime

import (
	"fmt"
	"log/slog"

	"github.com/profilemesh/gateway/internal/config"
	"github.com/profilemesh/gateway/internal/storage"
	"github.com/profilemesh/gateway/internal/storage/memory"
	"github.com/profilemesh/gateway/internal/storage/sqlite"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithConfigFile loads configuration from a YAML file, with PROFILES_
// environment variables overriding file values.
func WithConfigFile(path string) Option {
	return func(g *Gateway) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		g.cfg = cfg
		return nil
	}
}

// WithConfig injects an already-built configuration. Mostly for tests.
func WithConfig(cfg *config.Config) Option {
	return func(g *Gateway) error {
		g.cfg = cfg
		return nil
	}
}

// WithSQLite uses SQLite storage at the given path.
func WithSQLite(path string) Option {
	return func(g *Gateway) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		g.store = store
		return nil
	}
}

// WithMemoryStore uses in-memory storage. State does not survive restarts;
// intended for development and tests.
func WithMemoryStore() Option {
	return func(g *Gateway) error {
		g.store = memory.New()
		return nil
	}
}

// WithStore injects a prebuilt storage implementation.
func WithStore(store storage.Store) Option {
	return func(g *Gateway) error {
		g.store = store
		return nil
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}
