// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/shelf/internal/api"
	"github.com/starford/shelf/internal/assets"
	"github.com/starford/shelf/internal/calibre"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/sse"
)

// Run serves the library browser over HTTP until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := NewLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.Int("workers", cfg.Library.Workers),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := OpenLibrary(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	resolver, err := assets.NewResolver(svc.Root())
	if err != nil {
		return fmt.Errorf("init assets: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	r := NewHTTPHandler(svc, resolver, broker, cfg)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload when Calibre rewrites metadata.db.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := calibre.Watch(gCtx, svc.Root(), cfg.Watch.Debounce, logger, func() {
				reloadAndPublish(gCtx, svc, broker, logger)
			})
			if err != nil {
				logger.Error("watcher failed, live reload disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close the broker first so open SSE streams end and Shutdown can finish.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// NewHTTPHandler builds the root router: health checks and the /api tree.
func NewHTTPHandler(svc *library.Service, resolver *assets.Resolver, broker *sse.Broker, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","books":%d}`, svc.Len())
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc, resolver, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	return r
}

// reloadAndPublish re-projects the library and tells SSE clients. A failed
// reload keeps the previous book list.
func reloadAndPublish(ctx context.Context, svc *library.Service, broker *sse.Broker, logger *slog.Logger) {
	if err := svc.Reload(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("library reload failed", slog.String("error", err.Error()))
		broker.PublishError(err)
		return
	}
	broker.PublishReloaded(svc.Len())
}
