// Package runtime provides the Gateway struct and lifecycle management:
// it wires configuration, storage, the gating pipeline, the HTTP server,
// and the periodic janitor jobs into one embeddable unit.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/profilemesh/gateway/internal/api"
	"github.com/profilemesh/gateway/internal/auth"
	"github.com/profilemesh/gateway/internal/config"
	"github.com/profilemesh/gateway/internal/monitor"
	"github.com/profilemesh/gateway/internal/ratelimit"
	"github.com/profilemesh/gateway/internal/security"
	"github.com/profilemesh/gateway/internal/server"
	"github.com/profilemesh/gateway/internal/storage"
	"github.com/profilemesh/gateway/internal/storage/memory"
	"github.com/profilemesh/gateway/internal/storage/sqlite"
)

// Gateway is the main entry point for running the profile gateway. It can
// be embedded in larger applications or run standalone from cmd/gateway.
type Gateway struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger

	sessions *auth.SessionManager
	limiter  *ratelimit.Limiter
	recorder *monitor.Recorder
	srv      *server.Server
	jobs     *cron.Cron

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a Gateway with the given options. Configuration defaults to
// the environment (PROFILES_ variables); storage defaults to the configured
// backend, or in-memory when none is configured.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.cfg == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		gw.cfg = cfg
	}

	if gw.store == nil {
		switch gw.cfg.Storage.Type {
		case "sqlite":
			store, err := sqlite.New(gw.cfg.Storage.SQLite.Path)
			if err != nil {
				return nil, fmt.Errorf("create sqlite storage: %w", err)
			}
			gw.store = store
		default:
			gw.logger.Info("no storage configured, using in-memory store")
			gw.store = memory.New()
		}
	}

	return gw, nil
}

// Start wires the pipeline and begins serving. It returns once the listener
// is running; use Shutdown to stop.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg := g.cfg

	g.sessions = auth.NewSessionManager(cfg.Auth.SessionTTL())
	g.limiter = ratelimit.New(ratelimit.WithSweepIdleWindows(cfg.RateLimit.SweepIdleWindows))
	g.recorder = monitor.New(
		monitor.HealthThresholds{
			ErrorRate:    cfg.Monitor.ErrorRateThreshold,
			LatencyP95MS: cfg.Monitor.LatencyP95MS,
		},
		monitor.WithRetention(monitor.Retention{
			Raw:    time.Duration(cfg.Monitor.RawRetentionHours) * time.Hour,
			Hourly: time.Duration(cfg.Monitor.HourlyRetentionHours) * time.Hour,
			Daily:  time.Duration(cfg.Monitor.DailyRetentionDays) * 24 * time.Hour,
		}),
	)

	tiers := make(map[string]ratelimit.Tier, len(cfg.RateLimit.Tiers))
	var maxWindow time.Duration
	for name, tc := range cfg.RateLimit.Tiers {
		tiers[name] = ratelimit.Tier{Name: name, MaxRequests: tc.MaxRequests, Window: tc.Window()}
		if tc.Window() > maxWindow {
			maxWindow = tc.Window()
		}
	}

	validator := security.NewValidator(cfg.Security.MaxBodyBytes, cfg.CORS.AllowedOrigins)
	pipeline := server.NewPipeline(validator, g.limiter, tiers, g.recorder, g.logger)

	g.srv = server.New(server.Options{
		Port:           cfg.Server.Port,
		Version:        cfg.Server.Version,
		RequestTimeout: cfg.Server.RequestTimeout(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Sessions:       g.sessions,
	}, g.logger)

	handlers := api.New(g.store, g.sessions, g.recorder, g.logger)
	handlers.Mount(g.srv.Router, pipeline)

	if err := g.startJobs(cfg, maxWindow); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.stopped = make(chan struct{})
	go func() {
		defer close(g.stopped)
		if err := g.srv.Start(runCtx); err != nil {
			g.logger.Error("server stopped", slog.String("error", err.Error()))
		}
	}()

	g.logger.Info("gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Type),
		slog.Int("tiers", len(tiers)))
	return nil
}

// startJobs schedules the periodic janitor work: rate-limit bucket sweeps,
// monitoring rollups, and expired-session cleanup.
func (g *Gateway) startJobs(cfg *config.Config, maxWindow time.Duration) error {
	g.jobs = cron.New()

	if _, err := g.jobs.AddFunc(cfg.RateLimit.SweepSchedule, func() {
		if removed := g.limiter.Sweep(maxWindow); removed > 0 {
			g.logger.Debug("rate limit sweep", slog.Int("removed", removed))
		}
	}); err != nil {
		return fmt.Errorf("schedule rate limit sweep: %w", err)
	}

	if _, err := g.jobs.AddFunc(cfg.Monitor.RollupSchedule, func() {
		g.recorder.Rollup()
	}); err != nil {
		return fmt.Errorf("schedule monitoring rollup: %w", err)
	}

	if _, err := g.jobs.AddFunc(cfg.RateLimit.SweepSchedule, func() {
		if removed := g.sessions.SweepExpired(); removed > 0 {
			g.logger.Debug("session sweep", slog.Int("removed", removed))
		}
	}); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}

	g.jobs.Start()
	return nil
}

// Shutdown stops the gateway: the janitor first, then the HTTP server
// (draining in-flight requests), then storage and monitoring.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("shutting down gateway")

	if g.jobs != nil {
		stopCtx := g.jobs.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}

	if g.cancel != nil {
		g.cancel()
		select {
		case <-g.stopped:
		case <-ctx.Done():
		}
	}

	if g.recorder != nil {
		g.recorder.Close()
	}
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.logger.Error("failed to close storage", slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

// Config exposes the effective configuration.
func (g *Gateway) Config() *config.Config {
	return g.cfg
}
