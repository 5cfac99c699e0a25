// Package models defines the shared value types passed between storage,
// the snapshot store and the API.
package models

import "time"

// ChunkMeta is a lightweight description of one input chunk file.
type ChunkMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChunkRecord is one entry of the ingested-chunk ledger.
type ChunkRecord struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	Records    int       `json:"records"`
	Accepted   int       `json:"accepted"`
	Failed     int       `json:"failed"`
	IngestedAt time.Time `json:"ingested_at"`
}

// PostHit is one search result over edge texts.
type PostHit struct {
	PostID  string    `json:"post_id"`
	Src     string    `json:"src"`
	Dest    string    `json:"dest"`
	Kind    string    `json:"type"`
	Created time.Time `json:"created"`
	Snippet string    `json:"snippet"`
}
