package snapshot

import (
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/models"
)

// Store defines the snapshot operations. Consumers should depend on this
// interface rather than the concrete *DB type.
type Store interface {
	Save(g *graph.Graph) error
	Load() (*graph.Graph, error)
	MarkChunk(rec models.ChunkRecord) error
	ClearChunks() error
	AllChecksums() (map[string]string, error)
	Chunks() ([]models.ChunkRecord, error)
	SearchPosts(query string, limit int) ([]models.PostHit, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
