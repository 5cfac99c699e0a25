package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/twigraph/internal/storage"
)

// DefaultDebounce is the quiet period after the last file event before a
// sync runs.
const DefaultDebounce = 500 * time.Millisecond

// Watch starts an fsnotify watcher on root and runs Sync whenever chunk
// files matching pattern settle, until ctx is cancelled. New directories
// are added to the watch list as they appear. Chunks are only ever added;
// removing a chunk file does not remove its posts from the graph.
func Watch(ctx context.Context, svc Ingester, ledger Ledger, store storage.Provider, root, pattern string, debounce time.Duration, logger *slog.Logger, cb ChunkCallback) error {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root), slog.String("pattern", pattern))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			if _, err := Sync(ctx, svc, ledger, store, pattern, logger, cb); err != nil && ctx.Err() == nil {
				logger.Error("watcher: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if ok, _ := filepath.Match(pattern, filepath.Base(ev.Name)); !ok {
				continue
			}
			logger.Debug("watcher: chunk event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
