package ingest

import (
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/twigraph/internal/builder"
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/graphservice"
	"github.com/starford/twigraph/internal/snapshot"
	"github.com/starford/twigraph/internal/storage"
	"github.com/starford/twigraph/internal/testutil"
)

var t0 = time.Date(2021, 9, 1, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type env struct {
	dir   string
	store *storage.FS
	db    *snapshot.DB
	svc   *graphservice.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir, store := testutil.TestChunks(t)
	db := testutil.TestDB(t)
	svc := graphservice.New(graph.New(), db, graphservice.WithLogger(discard()))
	return &env{dir: dir, store: store, db: db, svc: svc}
}

func (e *env) write(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *env) edges() int { return e.svc.Info(context.Background()).Edges }

func TestSync_IngestsOnce(t *testing.T) {
	e := newEnv(t)
	e.write(t, "chunk-1.json", testutil.Chunk(testutil.Post("1", "a", "Alice", t0)))
	e.write(t, "notes.txt", []byte("not a chunk"))

	var got []builder.ChunkStats
	n, err := Sync(context.Background(), e.svc, e.db, e.store, "", discard(), func(s builder.ChunkStats) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(got) != 1 || got[0].Name != "chunk-1.json" || got[0].Accepted != 1 {
		t.Errorf("n = %d, stats = %+v", n, got)
	}

	n, err = Sync(context.Background(), e.svc, e.db, e.store, "", discard(), nil)
	if err != nil || n != 0 {
		t.Errorf("second sync: n = %d, err = %v", n, err)
	}

	chunks, _ := e.db.Chunks()
	if len(chunks) != 1 || chunks[0].Records != 1 {
		t.Errorf("ledger = %+v", chunks)
	}
}

func TestSync_Gzip(t *testing.T) {
	e := newEnv(t)
	f, err := os.Create(filepath.Join(e.dir, "chunk-2.json.gz"))
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	_, _ = zw.Write(testutil.Chunk(testutil.Post("1", "a", "Alice", t0), testutil.Post("2", "b", "Bob", t0)))
	zw.Close()
	f.Close()

	if _, err := Sync(context.Background(), e.svc, e.db, e.store, "", discard(), nil); err != nil {
		t.Fatal(err)
	}
	if got := e.edges(); got != 2 {
		t.Errorf("edges = %d, want 2", got)
	}
}

func TestSync_UnreadableChunkRecorded(t *testing.T) {
	e := newEnv(t)
	e.write(t, "chunk-bad.json", []byte("{not json"))
	e.write(t, "chunk-good.json", testutil.Chunk(testutil.Post("1", "a", "Alice", t0)))

	n, err := Sync(context.Background(), e.svc, e.db, e.store, "", discard(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || e.edges() != 1 {
		t.Errorf("n = %d, edges = %d", n, e.edges())
	}
	sums, _ := e.db.AllChecksums()
	if _, ok := sums["chunk-bad.json"]; !ok {
		t.Error("unreadable chunk not recorded")
	}
}

func TestSync_ChangedChunkReingested(t *testing.T) {
	e := newEnv(t)
	e.write(t, "chunk-1.json", testutil.Chunk(testutil.Post("1", "a", "Alice", t0)))
	if _, err := Sync(context.Background(), e.svc, e.db, e.store, "", discard(), nil); err != nil {
		t.Fatal(err)
	}
	e.write(t, "chunk-1.json", testutil.Chunk(
		testutil.Post("1", "a", "Alice", t0),
		testutil.Post("2", "a", "Alice", t0.Add(time.Hour)),
	))
	n, err := Sync(context.Background(), e.svc, e.db, e.store, "", discard(), nil)
	if err != nil || n != 1 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
	if got := e.edges(); got != 2 {
		t.Errorf("edges = %d, want 2", got)
	}
}

func TestSync_BrokenTimestampStops(t *testing.T) {
	e := newEnv(t)
	e.write(t, "chunk-1.json", testutil.Chunk(testutil.Post("1", "a", "Alice", t0).Set("created_at", "yesterday-ish")))
	if _, err := Sync(context.Background(), e.svc, e.db, e.store, "", discard(), nil); err == nil {
		t.Fatal("expected error")
	}
	sums, _ := e.db.AllChecksums()
	if len(sums) != 0 {
		t.Errorf("failed chunk recorded: %v", sums)
	}
}
