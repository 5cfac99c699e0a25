package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/models"
)

const timeLayout = time.RFC3339Nano

// Save replaces the stored graph with g in one transaction. The chunk
// ledger is left untouched.
func (db *DB) Save(g *graph.Graph) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, q := range []string{`DELETE FROM edges`, `DELETE FROM nodes`} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("snapshot: clear: %w", err)
		}
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (seq, id, kind, handle, labels, initial, followers, following, posts,
		                   created, observed, name, description, location, verified, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for i, n := range g.AllNodes().Items() {
		r := n.Record()
		labels, err := json.Marshal(r.Labels)
		if err != nil {
			return fmt.Errorf("snapshot: encode labels of %s: %w", r.ID, err)
		}
		metrics, err := json.Marshal(r.Metrics)
		if err != nil {
			return fmt.Errorf("snapshot: encode metrics of %s: %w", r.ID, err)
		}
		_, err = nodeStmt.Exec(i, r.ID, string(r.Kind), r.Handle, string(labels), r.InitialLabel,
			r.Followers, r.Following, r.Posts, formatTime(r.Created), formatTime(r.Observed),
			r.Name, r.Description, r.Location, r.Verified, string(metrics))
		if err != nil {
			return fmt.Errorf("snapshot: insert node %s: %w", r.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(`
		INSERT INTO edges (seq, src, dest, key, kind, created, post_id, causing_post_id,
		                   text, reacted_text, lang, mentions, hashtags, propagated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for i, e := range g.Edges().Items() {
		r := e.Record()
		mentions, err := json.Marshal(nonNil(r.Mentions))
		if err != nil {
			return fmt.Errorf("snapshot: encode mentions of %s: %w", r.PostID, err)
		}
		hashtags, err := json.Marshal(nonNil(r.Hashtags))
		if err != nil {
			return fmt.Errorf("snapshot: encode hashtags of %s: %w", r.PostID, err)
		}
		propagated, err := json.Marshal(nonNil(r.Propagated))
		if err != nil {
			return fmt.Errorf("snapshot: encode propagated of %s: %w", r.PostID, err)
		}
		_, err = edgeStmt.Exec(i, r.Src, r.Dest, r.Key, string(r.Kind), formatTime(r.Created),
			r.PostID, r.CausingPostID, r.Text, r.ReactedText, r.Lang,
			string(mentions), string(hashtags), string(propagated))
		if err != nil {
			return fmt.Errorf("snapshot: insert edge %s: %w", r.PostID, err)
		}
		if err := ftsInsert(tx, i, r.Text, r.Hashtags); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load restores the stored graph. An empty store yields a fresh graph with
// only the public sink.
func (db *DB) Load() (*graph.Graph, error) {
	nodes, err := db.loadNodes()
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return graph.New(), nil
	}
	edges, err := db.loadEdges()
	if err != nil {
		return nil, err
	}
	g, err := graph.Restore(nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("snapshot: restore: %w", err)
	}
	return g, nil
}

func (db *DB) loadNodes() ([]graph.NodeRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, kind, handle, labels, initial, followers, following, posts,
		       created, observed, name, description, location, verified, metrics
		FROM nodes ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load nodes: %w", err)
	}
	defer rows.Close()

	var out []graph.NodeRecord
	for rows.Next() {
		var r graph.NodeRecord
		var kind, labels, created, observed, metrics string
		if err := rows.Scan(&r.ID, &kind, &r.Handle, &labels, &r.InitialLabel, &r.Followers,
			&r.Following, &r.Posts, &created, &observed, &r.Name, &r.Description,
			&r.Location, &r.Verified, &metrics); err != nil {
			return nil, err
		}
		r.Kind = graph.NodeKind(kind)
		if err := json.Unmarshal([]byte(labels), &r.Labels); err != nil {
			return nil, fmt.Errorf("snapshot: node %s labels: %w", r.ID, err)
		}
		if metrics != "null" {
			if err := json.Unmarshal([]byte(metrics), &r.Metrics); err != nil {
				return nil, fmt.Errorf("snapshot: node %s metrics: %w", r.ID, err)
			}
		}
		if r.Created, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("snapshot: node %s: %w", r.ID, err)
		}
		if r.Observed, err = parseTime(observed); err != nil {
			return nil, fmt.Errorf("snapshot: node %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) loadEdges() ([]graph.EdgeRecord, error) {
	rows, err := db.conn.Query(`
		SELECT src, dest, key, kind, created, post_id, causing_post_id,
		       text, reacted_text, lang, mentions, hashtags, propagated
		FROM edges ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load edges: %w", err)
	}
	defer rows.Close()

	var out []graph.EdgeRecord
	for rows.Next() {
		var r graph.EdgeRecord
		var kind, created, mentions, hashtags, propagated string
		if err := rows.Scan(&r.Src, &r.Dest, &r.Key, &kind, &created, &r.PostID,
			&r.CausingPostID, &r.Text, &r.ReactedText, &r.Lang,
			&mentions, &hashtags, &propagated); err != nil {
			return nil, err
		}
		r.Kind = entity.Kind(kind)
		for _, f := range []struct {
			raw string
			dst *[]string
		}{{mentions, &r.Mentions}, {hashtags, &r.Hashtags}, {propagated, &r.Propagated}} {
			if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
				return nil, fmt.Errorf("snapshot: edge %s: %w", r.PostID, err)
			}
		}
		if r.Created, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("snapshot: edge %s: %w", r.PostID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkChunk records a chunk as ingested, replacing an earlier entry for the
// same path.
func (db *DB) MarkChunk(rec models.ChunkRecord) error {
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO chunks (path, checksum, records, accepted, failed, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			records     = excluded.records,
			accepted    = excluded.accepted,
			failed      = excluded.failed,
			ingested_at = excluded.ingested_at
	`, rec.Path, rec.Checksum, rec.Records, rec.Accepted, rec.Failed, rec.IngestedAt)
	if err != nil {
		return fmt.Errorf("snapshot: mark chunk: %w", err)
	}
	return nil
}

// ClearChunks empties the ledger so that every chunk is ingested again.
func (db *DB) ClearChunks() error {
	if _, err := db.conn.Exec(`DELETE FROM chunks`); err != nil {
		return fmt.Errorf("snapshot: clear chunks: %w", err)
	}
	return nil
}

// AllChecksums returns path -> checksum for every ingested chunk.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Chunks lists the ledger ordered by path.
func (db *DB) Chunks() ([]models.ChunkRecord, error) {
	rows, err := db.conn.Query(`
		SELECT path, checksum, records, accepted, failed, ingested_at
		FROM chunks ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: chunks: %w", err)
	}
	defer rows.Close()

	var out []models.ChunkRecord
	for rows.Next() {
		var r models.ChunkRecord
		if err := rows.Scan(&r.Path, &r.Checksum, &r.Records, &r.Accepted, &r.Failed, &r.IngestedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// scanHits reads search rows of (post_id, src, dest, kind, created, snippet).
func scanHits(rows *sql.Rows) ([]models.PostHit, error) {
	defer rows.Close()
	var out []models.PostHit
	for rows.Next() {
		var h models.PostHit
		var created string
		if err := rows.Scan(&h.PostID, &h.Src, &h.Dest, &h.Kind, &created, &h.Snippet); err != nil {
			return nil, err
		}
		h.Created, _ = parseTime(created)
		out = append(out, h)
	}
	return out, rows.Err()
}
