package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/twigraph/internal/builder"
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/graphservice"
	"github.com/starford/twigraph/internal/ingest"
	"github.com/starford/twigraph/internal/mcpserver"
	"github.com/starford/twigraph/internal/snapshot"
	"github.com/starford/twigraph/internal/storage"
	"github.com/starford/twigraph/internal/tagging"
)

// progressEvery is how many chunks pass between build progress lines.
const progressEvery = 50

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// openInput makes sure the chunk directory exists and wraps it.
func openInput(dir string) (*storage.FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create input dir: %w", err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// newService wraps g with the configured window, propagation settings and
// tagging.
func (a *application) newService(g *graph.Graph, db snapshot.Store, logger *slog.Logger, extra ...graphservice.Option) (*graphservice.Service, error) {
	cfg := a.config
	w, err := cfg.Input.Window()
	if err != nil {
		return nil, err
	}
	opts := []graphservice.Option{
		graphservice.WithWindow(w),
		graphservice.WithPropagation(cfg.Propagation.MaxRounds, cfg.Propagation.RatioThreshold),
		graphservice.WithLogger(logger),
	}
	if cfg.Propagation.TaggingFile != "" {
		t, err := tagging.Load(cfg.Propagation.TaggingFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, graphservice.WithTagging(t))
	}
	return graphservice.New(g, db, append(opts, extra...)...), nil
}

// enrich attaches the configured metrics and, when a tagging file is set,
// propagates its categories.
func (a *application) enrich(ctx context.Context, svc *graphservice.Service, logger *slog.Logger) error {
	for _, name := range a.config.Metrics {
		if err := svc.AttachMetric(ctx, name); err != nil {
			return err
		}
	}
	if a.config.Propagation.TaggingFile == "" {
		return nil
	}
	res, err := svc.Propagate(ctx, nil)
	if err != nil {
		return err
	}
	logger.Info("propagation done",
		slog.Int("seeded", res.Seeded),
		slog.Int("rounds", res.Rounds),
		slog.Int("appends", res.Appends),
		slog.Bool("converged", res.Converged))
	return nil
}

// persist saves the graph, then the ledger entries it now covers.
func persist(ctx context.Context, svc *graphservice.Service, ledger *pendingLedger) error {
	if err := svc.Save(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := ledger.flush(); err != nil {
		return fmt.Errorf("save chunk ledger: %w", err)
	}
	return nil
}

// Build ingests every input chunk into a fresh graph, enriches it and
// replaces the snapshot.
func Build(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	store, err := openInput(cfg.Input.Dir)
	if err != nil {
		return err
	}
	db, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("init snapshot: %w", err)
	}
	defer db.Close()

	ledger, err := newPendingLedger(db, true)
	if err != nil {
		return err
	}
	svc, err := app.newService(graph.New(), db, logger)
	if err != nil {
		return err
	}

	logger.Info("build: started",
		slog.String("input", cfg.Input.Dir),
		slog.String("pattern", cfg.Input.Pattern),
		slog.String("snapshot", cfg.Snapshot.Path))

	start := time.Now()
	var seen, accepted int
	n, err := ingest.Sync(ctx, svc, ledger, store, cfg.Input.Pattern, logger, func(stats builder.ChunkStats) {
		seen++
		accepted += stats.Accepted
		if seen%progressEvery == 0 {
			logger.Info("build: progress", slog.Int("chunks", seen), slog.Int("accepted", accepted))
		}
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	info := svc.Info(ctx)
	logger.Info("build: graph built",
		slog.Int("chunks", n),
		slog.Int("accepted", accepted),
		slog.Int("accounts", info.Accounts),
		slog.Int("edges", info.Edges),
		slog.Duration("took", time.Since(start)))

	if err := app.enrich(ctx, svc, logger); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := persist(ctx, svc, ledger); err != nil {
		return err
	}
	logger.Info("build: snapshot saved", slog.String("path", cfg.Snapshot.Path))
	return nil
}

// Enrich loads the snapshot, attaches metrics, propagates and saves it back.
func Enrich(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	db, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("init snapshot: %w", err)
	}
	defer db.Close()

	g, err := db.Load()
	if err != nil {
		return err
	}
	svc, err := app.newService(g, db, logger)
	if err != nil {
		return err
	}
	if err := app.enrich(ctx, svc, logger); err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	if err := svc.Save(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Info("enrich: snapshot saved", slog.String("path", cfg.Snapshot.Path))
	return nil
}

// SnapshotInfo is what Info prints.
type SnapshotInfo struct {
	Snapshot string     `json:"snapshot"`
	Graph    graph.Info `json:"graph"`
	Chunks   int        `json:"chunks"`
	Records  int        `json:"records"`
}

// Info writes a JSON summary of the snapshot to the output.
func Info(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	db, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("init snapshot: %w", err)
	}
	defer db.Close()

	g, err := db.Load()
	if err != nil {
		return err
	}
	chunks, err := db.Chunks()
	if err != nil {
		return err
	}

	out := SnapshotInfo{Snapshot: cfg.Snapshot.Path, Graph: g.Info(), Chunks: len(chunks)}
	for _, c := range chunks {
		out.Records += c.Records
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ServeMCP serves the loaded snapshot as MCP tools on stdio. Logs go to
// stderr since stdout carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

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
		return err
	}
	ledger, err := newPendingLedger(db, false)
	if err != nil {
		return err
	}
	svc, err := app.newService(g, db, logger)
	if err != nil {
		return err
	}

	logger.Info("mcp: serving on stdio", slog.String("snapshot", cfg.Snapshot.Path))
	if err := mcpserver.New(svc, store, ledger).ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return persist(ctx, svc, ledger)
}
