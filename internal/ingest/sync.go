// Package ingest feeds chunk files from a storage provider into the graph,
// once per distinct checksum.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/twigraph/internal/builder"
	"github.com/starford/twigraph/internal/models"
	"github.com/starford/twigraph/internal/storage"
)

// DefaultPattern matches the chunk files written by the collector.
const DefaultPattern = "chunk-*.json*"

// Ingester adds one chunk to the graph.
type Ingester interface {
	IngestChunk(ctx context.Context, name string, data []byte) (builder.ChunkStats, error)
}

// Ledger remembers which chunk contents were already ingested.
type Ledger interface {
	AllChecksums() (map[string]string, error)
	MarkChunk(rec models.ChunkRecord) error
}

// ChunkCallback is called after every ingested chunk.
type ChunkCallback func(stats builder.ChunkStats)

// Sync ingests every chunk matching pattern whose checksum differs from the
// one in the ledger, and records it. Unreadable chunks are logged, recorded
// and not retried until their content changes. A broken timestamp stops the
// sync with an error. It returns the number of chunks ingested.
func Sync(ctx context.Context, svc Ingester, ledger Ledger, store storage.Provider, pattern string, logger *slog.Logger, cb ChunkCallback) (int, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	metas, err := store.List(pattern)
	if err != nil {
		return 0, err
	}
	checksums, err := ledger.AllChecksums()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats, err := svc.IngestChunk(ctx, m.Path, data)
		if err != nil {
			return n, err
		}
		if err := ledger.MarkChunk(models.ChunkRecord{
			Path:       m.Path,
			Checksum:   m.Checksum,
			Records:    stats.Records,
			Accepted:   stats.Accepted,
			Failed:     stats.Failed,
			IngestedAt: time.Now().UTC(),
		}); err != nil {
			logger.Warn("sync: mark failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
		n++
		logger.Debug("sync: ingested", slog.String("path", m.Path), slog.Int("accepted", stats.Accepted))
		if cb != nil {
			cb(stats)
		}
	}
	if n > 0 {
		logger.Info("sync: done", slog.Int("chunks", n), slog.Int("listed", len(metas)))
	}
	return n, nil
}
