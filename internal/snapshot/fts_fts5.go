//go:build sqlite_fts5

package snapshot

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/twigraph/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
			seq UNINDEXED,
			text,
			hashtags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsClear(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM posts_fts`); err != nil {
		return fmt.Errorf("snapshot: clear fts: %w", err)
	}
	return nil
}

func ftsInsert(tx *sql.Tx, seq int, text string, hashtags []string) error {
	_, err := tx.Exec(`INSERT INTO posts_fts (seq, text, hashtags) VALUES (?, ?, ?)`,
		seq, text, strings.Join(hashtags, " "))
	if err != nil {
		return fmt.Errorf("snapshot: insert fts: %w", err)
	}
	return nil
}

// SearchPosts performs an FTS5 full-text search and returns matching posts with snippets.
func (db *DB) SearchPosts(query string, limit int) ([]models.PostHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT e.post_id, e.src, e.dest, e.kind, e.created,
		       snippet(posts_fts, 1, '<b>', '</b>', '...', 32)
		FROM posts_fts
		JOIN edges e ON e.seq = posts_fts.seq
		WHERE posts_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: search: %w", err)
	}
	return scanHits(rows)
}
