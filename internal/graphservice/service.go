// Package graphservice owns the in-memory graph while serving. Queries take
// a read lock; ingest, propagation, metric passes and node removal take the
// write lock.
package graphservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/starford/twigraph/internal/analysis"
	"github.com/starford/twigraph/internal/apperr"
	"github.com/starford/twigraph/internal/builder"
	"github.com/starford/twigraph/internal/centrality"
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/models"
	"github.com/starford/twigraph/internal/propagate"
	"github.com/starford/twigraph/internal/seq"
	"github.com/starford/twigraph/internal/snapshot"
	"github.com/starford/twigraph/pkg/telemetry"
)

// Event names passed to the Listener.
const (
	EventChunkIngested = "chunk.ingested"
	EventPropagated    = "graph.propagated"
	EventMetric        = "graph.metric"
	EventNodeRemoved   = "node.removed"
)

// Listener receives change notifications after the write lock is released.
type Listener func(event string, data any)

// Service coordinates the graph, its builder and the snapshot store.
type Service struct {
	mu      sync.RWMutex
	b       *builder.Builder
	store   snapshot.Store
	tagging propagate.Tagging
	prop    propagate.Options
	window  builder.Window

	rec      *telemetry.Recorder
	listener Listener
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTagging sets the default seed used by Propagate.
func WithTagging(t propagate.Tagging) Option { return func(s *Service) { s.tagging = t } }

// WithPropagation sets round limit and category ratio.
func WithPropagation(maxRounds int, ratio float64) Option {
	return func(s *Service) { s.prop.MaxRounds, s.prop.Ratio = maxRounds, ratio }
}

// WithWindow restricts ingested posts to w.
func WithWindow(w builder.Window) Option { return func(s *Service) { s.window = w } }

// WithRecorder sets the telemetry recorder.
func WithRecorder(r *telemetry.Recorder) Option { return func(s *Service) { s.rec = r } }

// WithListener sets the change listener.
func WithListener(l Listener) Option { return func(s *Service) { s.listener = l } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// New wraps g. store may be nil, in which case Save and SearchPosts fail.
func New(g *graph.Graph, store snapshot.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.prop.Logger = s.logger
	s.prop = s.prop.WithDefaults()
	s.b = builder.Resume(g, builder.WithWindow(s.window), builder.WithLogger(s.logger))
	s.rec.GraphSize(g.NodeCount(), g.Info().Edges)
	return s
}

// Ratio is the category ratio used by every query.
func (s *Service) Ratio() float64 { return s.prop.Ratio }

func (s *Service) notify(event string, data any) {
	if s.listener != nil {
		s.listener(event, data)
	}
}

// Info summarizes the graph.
func (s *Service) Info(_ context.Context) graph.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.Graph().Info()
}

// NodeFilter selects and orders account nodes.
type NodeFilter struct {
	Category string
	Seeded   bool
	Handle   string
	// SortBy names a metric; nodes are then ordered by it, highest first,
	// and nodes lacking it come last.
	SortBy string
	Limit  int
	Offset int
}

// NodeSummary is one row of a node listing.
type NodeSummary struct {
	ID        string             `json:"id"`
	Handle    string             `json:"handle"`
	Category  string             `json:"category"`
	Seeded    bool               `json:"seeded"`
	Followers int64              `json:"followers"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Nodes lists account nodes matching f and the total before paging.
func (s *Service) Nodes(_ context.Context, f NodeFilter) ([]NodeSummary, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratio := s.prop.Ratio
	handle := strings.ToLower(f.Handle)
	nodes := s.b.Graph().Nodes().Filter(func(n graph.Node) bool {
		if f.Category != "" && n.Category(ratio) != f.Category {
			return false
		}
		if f.Seeded && !n.InitialLabel() {
			return false
		}
		return handle == "" || strings.Contains(n.Handle(), handle)
	}).Items()

	if f.SortBy != "" {
		slices.SortStableFunc(nodes, func(a, b graph.Node) int {
			va, oka := a.Metric(f.SortBy).Get()
			vb, okb := b.Metric(f.SortBy).Get()
			switch {
			case oka != okb:
				if oka {
					return -1
				}
				return 1
			case va > vb:
				return -1
			case va < vb:
				return 1
			}
			return 0
		})
	}

	total := len(nodes)
	nodes = page(nodes, f.Limit, f.Offset)
	out := make([]NodeSummary, len(nodes))
	for i, n := range nodes {
		out[i] = summarize(n, ratio)
	}
	return out, total
}

func summarize(n graph.Node, ratio float64) NodeSummary {
	r := n.Record()
	return NodeSummary{
		ID:        r.ID,
		Handle:    r.Handle,
		Category:  n.Category(ratio),
		Seeded:    r.InitialLabel,
		Followers: r.Followers,
		Metrics:   r.Metrics,
	}
}

// NodeDetail is the full view of one node.
type NodeDetail struct {
	graph.NodeRecord
	Category     string                        `json:"category"`
	Distribution *seq.Ordered[string, float64] `json:"distribution"`
	OutEdges     int                           `json:"out_edges"`
	InEdges      int                           `json:"in_edges"`
	RetweetedBy  int                           `json:"retweeted_by"`
}

// Node returns the detail of node id.
func (s *Service) Node(_ context.Context, id string) (*NodeDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.b.Graph().Node(id)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, apperr.ErrNotFound)
	}
	return &NodeDetail{
		NodeRecord:   n.Record(),
		Category:     n.Category(s.prop.Ratio),
		Distribution: n.CategoryDistribution(),
		OutEdges:     n.OutEdges().Len(),
		InEdges:      n.InEdges().Len(),
		RetweetedBy:  seq.Unique(n.OutNodes(graph.Edge.IsRetweet)).Len(),
	}, nil
}

// EdgeFilter selects edges.
type EdgeFilter struct {
	Kind    string
	Src     string
	Dest    string
	Hashtag string
	Since   time.Time
	Limit   int
	Offset  int
}

// Edges lists edges matching f in insertion order and the total before
// paging.
func (s *Service) Edges(_ context.Context, f EdgeFilter) ([]graph.EdgeRecord, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag := strings.ToLower(strings.TrimPrefix(f.Hashtag, "#"))
	edges := s.b.Graph().Edges().Filter(func(e graph.Edge) bool {
		switch {
		case f.Kind != "" && string(e.Kind()) != f.Kind:
			return false
		case f.Src != "" && e.Src().ID() != f.Src:
			return false
		case f.Dest != "" && e.Dest().ID() != f.Dest:
			return false
		case tag != "" && !slices.Contains(e.Hashtags(), tag):
			return false
		case !f.Since.IsZero() && e.Created().Before(f.Since):
			return false
		}
		return true
	}).Items()

	total := len(edges)
	edges = page(edges, f.Limit, f.Offset)
	out := make([]graph.EdgeRecord, len(edges))
	for i, e := range edges {
		out[i] = e.Record()
	}
	return out, total
}

// Frequencies counts field over the graph.
func (s *Service) Frequencies(_ context.Context, field string, opts ...seq.FreqOption) (*seq.Ordered[string, float64], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, err := analysis.Frequencies(s.b.Graph(), field, s.prop.Ratio, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	}
	return out, nil
}

// Matrix returns the interaction matrix between categories.
func (s *Service) Matrix(_ context.Context) *analysis.Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analysis.InteractionMatrix(s.b.Graph(), analysis.ByCategory(s.prop.Ratio), nil, nil)
}

// TopRetweeters ranks the accounts that retweeted most.
func (s *Service) TopRetweeters(_ context.Context, n int) []analysis.Retweeter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analysis.TopRetweeters(s.b.Graph(), s.prop.Ratio, n)
}

// PropagateResult reports a propagation run.
type PropagateResult struct {
	Seeded int `json:"seeded"`
	propagate.Result
}

// Propagate seeds t, or the configured tagging when t is nil, and runs
// propagation. Labels accumulate across calls.
func (s *Service) Propagate(_ context.Context, t propagate.Tagging) (*PropagateResult, error) {
	if t == nil {
		t = s.tagging
	}
	if t == nil {
		return nil, apperr.ErrNoTagging
	}

	s.mu.Lock()
	seeded, res := propagate.SeedAndRun(s.b.Graph(), t, s.prop)
	s.mu.Unlock()

	s.rec.Propagation(res.Rounds, res.Appends)
	out := &PropagateResult{Seeded: seeded, Result: res}
	s.notify(EventPropagated, out)
	return out, nil
}

// AttachMetric runs the named centrality pass.
func (s *Service) AttachMetric(_ context.Context, name string) error {
	start := time.Now()
	s.mu.Lock()
	err := centrality.Attach(s.b.Graph(), name)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.rec.MetricPass(name, time.Since(start).Seconds())
	s.logger.Info("metric attached", slog.String("metric", name), slog.Duration("took", time.Since(start)))
	s.notify(EventMetric, map[string]string{"metric": name})
	return nil
}

// RemoveNode deletes an account and its incident edges.
func (s *Service) RemoveNode(_ context.Context, id string) error {
	s.mu.Lock()
	g := s.b.Graph()
	err := g.RemoveNode(id)
	nodes, edges := g.NodeCount(), g.Info().Edges
	s.mu.Unlock()

	switch {
	case errors.Is(err, graph.ErrUnknownNode):
		return fmt.Errorf("node %s: %w", id, apperr.ErrNotFound)
	case errors.Is(err, graph.ErrPublicNode):
		return fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	case err != nil:
		return err
	}
	s.rec.GraphSize(nodes, edges)
	s.notify(EventNodeRemoved, map[string]string{"id": id})
	return nil
}

// IngestChunk adds one chunk to the graph.
func (s *Service) IngestChunk(_ context.Context, name string, data []byte) (builder.ChunkStats, error) {
	s.mu.Lock()
	stats, err := s.b.AddChunk(name, data)
	g := s.b.Graph()
	nodes, edges := g.NodeCount(), g.Info().Edges
	s.mu.Unlock()

	s.rec.Chunk(stats.Unreadable, stats.Accepted, stats.Ignored, stats.Failed)
	s.rec.GraphSize(nodes, edges)
	if err != nil {
		return stats, err
	}
	s.notify(EventChunkIngested, stats)
	return stats, nil
}

// Save writes the graph to the snapshot store.
func (s *Service) Save(_ context.Context) error {
	if s.store == nil {
		return errors.New("graphservice: no snapshot store")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Save(s.b.Graph())
}

// SearchPosts searches the post texts of the last saved snapshot.
func (s *Service) SearchPosts(_ context.Context, query string, limit int) ([]models.PostHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidArgument)
	}
	if s.store == nil {
		return nil, errors.New("graphservice: no snapshot store")
	}
	return s.store.SearchPosts(query, limit)
}

func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
