// Package testutil provides shared test helpers: temporary snapshot
// databases, chunk directories and a fluent builder for raw post records.
package testutil

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/snapshot"
	"github.com/starford/twigraph/internal/storage"
)

// TestDB creates a temporary snapshot database that is automatically cleaned up.
func TestDB(t *testing.T) *snapshot.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "twigraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := snapshot.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestChunks creates a temporary chunk directory with a storage.Provider.
func TestChunks(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// AccountCreated is the creation time given to every fixture account.
var AccountCreated = time.Date(2012, 1, 2, 15, 4, 5, 0, time.UTC)

// PostBuilder assembles a raw post record.
type PostBuilder struct {
	m map[string]any
}

// Post starts a post with the given id, posted by the account (authorID,
// handle) at the given time.
func Post(id, authorID, handle string, at time.Time) *PostBuilder {
	return &PostBuilder{m: map[string]any{
		"id_str":     id,
		"created_at": at.UTC().Format(time.RubyDate),
		"text":       "post " + id,
		"lang":       "en",
		"user": map[string]any{
			"id_str":          authorID,
			"screen_name":     handle,
			"created_at":      AccountCreated.Format(time.RubyDate),
			"followers_count": 0,
			"friends_count":   0,
			"statuses_count":  0,
		},
		"entities": map[string]any{
			"hashtags":      []any{},
			"user_mentions": []any{},
			"urls":          []any{},
		},
	}}
}

// Set overrides a top-level field.
func (p *PostBuilder) Set(key string, v any) *PostBuilder {
	p.m[key] = v
	return p
}

// User overrides a field of the author record.
func (p *PostBuilder) User(key string, v any) *PostBuilder {
	p.m["user"].(map[string]any)[key] = v
	return p
}

// Followers sets the author's follower count.
func (p *PostBuilder) Followers(n int) *PostBuilder { return p.User("followers_count", n) }

// Text sets the post text.
func (p *PostBuilder) Text(s string) *PostBuilder { return p.Set("text", s) }

// Hashtags sets the hashtag entities.
func (p *PostBuilder) Hashtags(tags ...string) *PostBuilder {
	var list []any
	for _, t := range tags {
		list = append(list, map[string]any{"text": t})
	}
	p.m["entities"].(map[string]any)["hashtags"] = list
	return p
}

// Mentions sets the user mention entities.
func (p *PostBuilder) Mentions(handles ...string) *PostBuilder {
	var list []any
	for _, h := range handles {
		list = append(list, map[string]any{"screen_name": h})
	}
	p.m["entities"].(map[string]any)["user_mentions"] = list
	return p
}

// ReplyTo marks the post as a reply to postID by the account (accountID, handle).
func (p *PostBuilder) ReplyTo(postID, accountID, handle string) *PostBuilder {
	p.m["in_reply_to_status_id_str"] = postID
	p.m["in_reply_to_status_id"] = json.Number(postID)
	p.m["in_reply_to_user_id_str"] = accountID
	p.m["in_reply_to_screen_name"] = handle
	return p
}

// Retweet nests orig as the retweeted post.
func (p *PostBuilder) Retweet(orig *PostBuilder) *PostBuilder {
	return p.Set("retweeted_status", orig.m)
}

// Quote nests orig as the quoted post.
func (p *PostBuilder) Quote(orig *PostBuilder) *PostBuilder {
	return p.Set("quoted_status", orig.m)
}

// JSON encodes the post.
func (p *PostBuilder) JSON() []byte {
	b, err := json.Marshal(p.m)
	if err != nil {
		panic(err)
	}
	return b
}

// Record decodes the post into a fresh raw record, detached from the builder.
func (p *PostBuilder) Record() entity.Record {
	r, err := entity.DecodeRecord(p.JSON())
	if err != nil {
		panic(err)
	}
	return r
}

// Records converts builders into raw records.
func Records(posts ...*PostBuilder) []entity.Record {
	out := make([]entity.Record, len(posts))
	for i, p := range posts {
		out[i] = p.Record()
	}
	return out
}

// Chunk encodes posts as one chunk, a JSON array.
func Chunk(posts ...*PostBuilder) []byte {
	raw := make([]json.RawMessage, len(posts))
	for i, p := range posts {
		raw[i] = p.JSON()
	}
	b, err := json.Marshal(raw)
	if err != nil {
		panic(err)
	}
	return b
}
