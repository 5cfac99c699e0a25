// Package snapshot persists the interaction graph and the ingested-chunk
// ledger in SQLite, with optional FTS5 search over post texts.
package snapshot

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	seq          INTEGER PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	kind         TEXT NOT NULL,
	handle       TEXT NOT NULL DEFAULT '',
	labels       TEXT NOT NULL DEFAULT '[]',
	initial      INTEGER NOT NULL DEFAULT 0,
	followers    INTEGER NOT NULL DEFAULT 0,
	following    INTEGER NOT NULL DEFAULT 0,
	posts        INTEGER NOT NULL DEFAULT 0,
	created      TEXT NOT NULL DEFAULT '',
	observed     TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	verified     INTEGER NOT NULL DEFAULT 0,
	metrics      TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edges (
	seq             INTEGER PRIMARY KEY,
	src             TEXT NOT NULL,
	dest            TEXT NOT NULL,
	key             INTEGER NOT NULL,
	kind            TEXT NOT NULL,
	created         TEXT NOT NULL,
	post_id         TEXT NOT NULL,
	causing_post_id TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL DEFAULT '',
	reacted_text    TEXT NOT NULL DEFAULT '',
	lang            TEXT NOT NULL DEFAULT '',
	mentions        TEXT NOT NULL DEFAULT '[]',
	hashtags        TEXT NOT NULL DEFAULT '[]',
	propagated      TEXT NOT NULL DEFAULT '[]',
	UNIQUE(src, dest, key)
);

CREATE INDEX IF NOT EXISTS idx_edges_post ON edges(post_id);

CREATE TABLE IF NOT EXISTS chunks (
	path        TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0,
	accepted    INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	ingested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with snapshot operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("snapshot: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
