package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/profilemesh/gateway/internal/auth"
)

// Server owns the router and the listener lifecycle.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	http   *http.Server
}

// Options configures the middleware stack applied to every route.
type Options struct {
	Port           int
	Version        string
	RequestTimeout time.Duration
	AllowedOrigins []string
	Sessions       *auth.SessionManager
}

// New builds the router with the full middleware stack. Routes are mounted
// by the caller on Router.
func New(opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(VersionMiddleware(opts.Version))
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	if opts.Sessions != nil {
		r.Use(auth.Middleware(opts.Sessions))
	}

	if opts.RequestTimeout > 0 {
		r.Use(TimeoutMiddleware(opts.RequestTimeout))
	}
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "profile-gateway")
	})

	return &Server{
		Router: r,
		Port:   opts.Port,
		logger: logger,
	}
}

// Start listens until the context is canceled, then drains in-flight
// requests before returning.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.Int("port", s.Port))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
