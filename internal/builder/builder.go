// Package builder folds raw post records into an interaction graph.
//
// The builder is idempotent under duplicate input (posts are processed once
// per id) and resolves conflicting account snapshots by last observation:
// an account's attributes always reflect the newest post that mentioned it,
// whatever order the posts arrive in.
package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/graph"
)

var (
	ErrNoAuthor      = errors.New("builder: post has no author")
	ErrNoReplyTarget = errors.New("builder: reply has no target account")
)

// Window bounds accepted posts by creation time. A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Builder accumulates posts into one graph. It is not safe for concurrent
// use.
type Builder struct {
	g        *graph.Graph
	window   Window
	only     func(entity.Post) bool
	logger   *slog.Logger
	seen     map[string]struct{}
	observed map[string]time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithWindow restricts top-level posts to w.
func WithWindow(w Window) Option { return func(b *Builder) { b.window = w } }

// WithLogger sets the logger for skipped records.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithFilter admits only top-level posts for which keep returns true.
func WithFilter(keep func(entity.Post) bool) Option { return func(b *Builder) { b.only = keep } }

// New starts a builder over a fresh graph.
func New(opts ...Option) *Builder {
	return Resume(graph.New(), opts...)
}

// Resume continues building into an existing graph. The set of processed
// post ids and the last observation per account are recovered from the
// graph's edges and nodes.
func Resume(g *graph.Graph, opts ...Option) *Builder {
	b := &Builder{
		g:        g,
		logger:   slog.Default(),
		seen:     make(map[string]struct{}),
		observed: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, e := range g.Edges().Items() {
		b.seen[e.PostID()] = struct{}{}
	}
	for _, n := range g.Nodes().Items() {
		if obs := n.Observed(); obs.After(graph.Epoch) {
			b.observed[n.ID()] = obs
		}
	}
	return b
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *graph.Graph { return b.g }

// Build folds records into a new graph. Malformed records are logged and
// skipped; a broken timestamp aborts the build.
func Build(records []entity.Record, w Window, opts ...Option) (*graph.Graph, error) {
	b := New(append(opts, WithWindow(w))...)
	var stats ChunkStats
	for _, rec := range records {
		if err := b.consume(rec, &stats); err != nil {
			return nil, err
		}
	}
	b.logger.Info("graph built", "records", stats.Records, "accepted", stats.Accepted,
		"ignored", stats.Ignored, "failed", stats.Failed)
	return b.g, nil
}

// Add processes one raw post and its inner posts. It reports whether the
// top-level post was accepted. Any error leaves the post marked processed.
func (b *Builder) Add(rec entity.Record) (bool, error) {
	p := entity.NewPost(rec)
	if p.IsDeleted() || p.IsWithheld() {
		return false, nil
	}
	created, err := p.CreatedAt()
	if err != nil {
		return false, fmt.Errorf("post %s: %w", p.ID(), err)
	}
	if !b.window.Contains(created) {
		return false, nil
	}
	if _, ok := b.seen[p.ID()]; ok {
		return false, nil
	}
	if b.only != nil && !b.only(p) {
		return false, nil
	}
	b.seen[p.ID()] = struct{}{}
	if err := b.observe(p); err != nil {
		return true, fmt.Errorf("post %s: %w", p.ID(), err)
	}
	for _, inner := range p.InnerPosts() {
		if !b.claim(inner.ID()) {
			continue
		}
		if err := b.observe(inner); err != nil {
			return true, fmt.Errorf("inner post %s of %s: %w", inner.ID(), p.ID(), err)
		}
	}
	return true, nil
}

func (b *Builder) claim(id string) bool {
	if _, ok := b.seen[id]; ok {
		return false
	}
	b.seen[id] = struct{}{}
	return true
}

// consume runs Add and tallies the outcome. Every error but a broken
// timestamp is logged and swallowed.
func (b *Builder) consume(rec entity.Record, stats *ChunkStats) error {
	stats.Records++
	ok, err := b.Add(rec)
	switch {
	case err == nil && ok:
		stats.Accepted++
	case err == nil:
		stats.Ignored++
	case errors.Is(err, entity.ErrTimestamp):
		return err
	default:
		stats.Failed++
		p := entity.NewPost(rec)
		b.logger.Warn("skip post", "id", p.ID(), "text", p.Text(), "error", err)
	}
	return nil
}

// observe adds the author of p and the edge p represents.
func (b *Builder) observe(p entity.Post) error {
	author, ok := p.Author().Get()
	if !ok {
		return ErrNoAuthor
	}
	observed, err := p.CreatedAt()
	if err != nil {
		return err
	}
	if err := b.upsert(author, observed); err != nil {
		return err
	}

	e := graph.EdgeRecord{
		Src:      author.ID(),
		Dest:     graph.PublicID,
		Kind:     p.Kind(),
		Created:  observed,
		PostID:   p.ID(),
		Text:     p.Text(),
		Lang:     p.Lang().Or(""),
		Mentions: p.Mentions(),
		Hashtags: p.Hashtags(),
	}
	switch e.Kind {
	case entity.KindStatus:
	case entity.KindReply:
		dest, ok := p.ReplyToAccountID().Get()
		if !ok {
			return ErrNoReplyTarget
		}
		b.g.EnsureStub(dest, strings.ToLower(p.ReplyToHandle().Or("")))
		e.Dest = dest
		e.CausingPostID = p.ReplyToPostID().Or("")
	case entity.KindRetweet, entity.KindQuote:
		orig := p.RetweetedPost()
		if e.Kind == entity.KindQuote {
			orig = p.QuotedPost()
		}
		op, _ := orig.Get()
		oa, ok := op.Author().Get()
		if !ok {
			return ErrNoAuthor
		}
		if err := b.upsert(oa, observed); err != nil {
			return err
		}
		e.Src, e.Dest = oa.ID(), author.ID()
		e.CausingPostID = op.ID()
		e.ReactedText = op.Text()
	default:
		return nil
	}
	_, err = b.g.AddEdge(e)
	return err
}

// upsert writes the account attributes unless a newer observation of the
// same account was already recorded. A removed account is always written
// back.
func (b *Builder) upsert(a entity.Account, observed time.Time) error {
	id := a.ID()
	if id == "" {
		return ErrNoAuthor
	}
	if last, ok := b.observed[id]; ok && !last.Before(observed) {
		if _, live := b.g.Node(id); live {
			return nil
		}
	}
	created, err := a.CreatedAt()
	if err != nil {
		return fmt.Errorf("account %s: %w", id, err)
	}
	b.observed[id] = observed
	b.g.UpsertAccount(graph.NodeRecord{
		ID:          id,
		Handle:      strings.ToLower(a.Handle().Or("")),
		Followers:   a.Followers().Or(0),
		Following:   a.Following().Or(0),
		Posts:       a.Posts().Or(0),
		Created:     created,
		Observed:    observed,
		Name:        a.Name().Or(""),
		Description: a.Description().Or(""),
		Location:    a.Location().Or(""),
		Verified:    a.Verified().Or(false),
	})
	return nil
}
