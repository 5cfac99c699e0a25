package storage

import "github.com/starford/twigraph/internal/models"

// Provider abstracts access to the chunk directory.
type Provider interface {
	// List returns metadata for every file under the root whose base name
	// matches pattern, in lexical path order.
	List(pattern string) ([]models.ChunkMeta, error)
	// Read returns the decoded bytes of the chunk at path (relative to root).
	// Gzipped chunks are decompressed.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Root returns the absolute chunk directory.
	Root() string
}
