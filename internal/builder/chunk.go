package builder

import (
	"github.com/starford/twigraph/internal/entity"
)

// ChunkStats counts the outcome of one chunk.
type ChunkStats struct {
	Name       string `json:"name"`
	Records    int    `json:"records"`
	Accepted   int    `json:"accepted"`
	Ignored    int    `json:"ignored"`
	Failed     int    `json:"failed"`
	Unreadable bool   `json:"unreadable,omitempty"`
}

// AddChunk decodes a chunk (a JSON array of posts) and adds every post. An
// undecodable chunk is logged and skipped as a whole. Only a broken
// timestamp is returned as an error; the chunk may then be partly applied.
func (b *Builder) AddChunk(name string, data []byte) (ChunkStats, error) {
	stats := ChunkStats{Name: name}
	records, err := entity.DecodeChunk(data)
	if err != nil {
		b.logger.Error("skip chunk", "chunk", name, "error", err)
		stats.Unreadable = true
		return stats, nil
	}
	for _, rec := range records {
		if err := b.consume(rec, &stats); err != nil {
			return stats, err
		}
	}
	b.logger.Info("chunk processed", "chunk", name, "records", stats.Records,
		"accepted", stats.Accepted, "ignored", stats.Ignored, "failed", stats.Failed)
	return stats, nil
}
