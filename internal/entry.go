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

	"github.com/starford/twigraph/internal/api"
	"github.com/starford/twigraph/internal/builder"
	"github.com/starford/twigraph/internal/graphservice"
	"github.com/starford/twigraph/internal/ingest"
	"github.com/starford/twigraph/internal/snapshot"
	"github.com/starford/twigraph/internal/sse"
	"github.com/starford/twigraph/pkg/telemetry"
)

// Run loads the snapshot, catches up with the input directory and serves
// the HTTP API until the context is cancelled or a signal arrives. The
// graph is saved on the way out.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("input_dir", cfg.Input.Dir),
		slog.String("snapshot_path", cfg.Snapshot.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := openInput(cfg.Input.Dir)
	if err != nil {
		return err
	}

	db, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("init snapshot: %w", err)
	}
	defer db.Close()

	g, err := db.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	ledger, err := newPendingLedger(db, false)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rec := telemetry.New()
	svc, err := app.newService(g, db, logger,
		graphservice.WithRecorder(rec),
		graphservice.WithListener(broker.PublishGraphEvent))
	if err != nil {
		return err
	}

	// Catch up with chunks written while we were down.
	if _, err := ingest.Sync(ctx, svc, ledger, store, cfg.Input.Pattern, logger, nil); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", rec.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		group.Go(func() error {
			err := ingest.Watch(gCtx, svc, ledger, store, store.Root(), cfg.Input.Pattern, cfg.Watch.Debounce, logger,
				func(stats builder.ChunkStats) {
					logger.Info("chunk ingested",
						slog.String("chunk", stats.Name),
						slog.Int("accepted", stats.Accepted))
				})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watcher: %w", err)
			}
			return nil
		})
	}

	// Start HTTP server.
	group.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	group.Go(func() error {
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	err = group.Wait()
	if errors.Is(err, errShutdown) {
		err = nil
	}

	if saveErr := persist(context.Background(), svc, ledger); saveErr != nil {
		logger.Error("Snapshot save failed", slog.String("error", saveErr.Error()))
		if err == nil {
			err = saveErr
		}
	} else {
		logger.Info("Snapshot saved", slog.String("path", cfg.Snapshot.Path))
	}

	if err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
