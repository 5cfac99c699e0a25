//go:build !sqlite_fts5

package snapshot

import (
	"database/sql"
	"fmt"

	"github.com/starford/twigraph/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over edges.text.
	return nil
}

func ftsClear(_ *sql.Tx) error { return nil }

func ftsInsert(_ *sql.Tx, _ int, _ string, _ []string) error { return nil }

// SearchPosts performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) SearchPosts(query string, limit int) ([]models.PostHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT post_id, src, dest, kind, created, substr(text, 1, 200)
		FROM edges
		WHERE text LIKE ? OR hashtags LIKE ?
		ORDER BY seq
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: search: %w", err)
	}
	return scanHits(rows)
}
