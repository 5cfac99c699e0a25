package internal

import (
	"maps"
	"sync"

	"github.com/starford/twigraph/internal/models"
	"github.com/starford/twigraph/internal/snapshot"
)

// pendingLedger keeps chunk marks in memory until the graph holding those
// chunks has been saved, so the stored ledger never runs ahead of the
// stored graph.
type pendingLedger struct {
	mu      sync.Mutex
	db      snapshot.Store
	known   map[string]string
	pending []models.ChunkRecord
	reset   bool
}

// newPendingLedger starts from the stored ledger, or from an empty one when
// fresh is set; a fresh ledger replaces the stored one on flush.
func newPendingLedger(db snapshot.Store, fresh bool) (*pendingLedger, error) {
	l := &pendingLedger{db: db, known: map[string]string{}, reset: fresh}
	if fresh {
		return l, nil
	}
	sums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}
	l.known = sums
	return l, nil
}

func (l *pendingLedger) AllChecksums() (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.known), nil
}

func (l *pendingLedger) MarkChunk(rec models.ChunkRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.known[rec.Path] = rec.Checksum
	l.pending = append(l.pending, rec)
	return nil
}

// flush writes the pending marks to the store.
func (l *pendingLedger) flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reset {
		if err := l.db.ClearChunks(); err != nil {
			return err
		}
		l.reset = false
	}
	for i, rec := range l.pending {
		if err := l.db.MarkChunk(rec); err != nil {
			l.pending = l.pending[i:]
			return err
		}
	}
	l.pending = nil
	return nil
}
