package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"

	"github.com/starford/twigraph/internal/graphservice"
	"github.com/starford/twigraph/internal/propagate"
	"github.com/starford/twigraph/internal/seq"
	"github.com/starford/twigraph/internal/tagging"
)

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Graph handles GET /api/graph.
//
//	@Summary		Summarize the graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	graph.Info
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Info(r.Context()))
}

// ListNodes handles GET /api/nodes.
//
//	@Summary		List account nodes with optional filtering and ordering
//	@Tags			nodes
//	@Produce		json
//	@Param			category	query		string	false	"Effective category"
//	@Param			seeded		query		bool	false	"Only seeded accounts"
//	@Param			handle		query		string	false	"Handle substring"
//	@Param			sort		query		string	false	"Metric to order by, highest first"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	NodeListResponse
//	@Security		BearerAuth
//	@Router			/nodes [get]
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	seeded, _ := strconv.ParseBool(q.Get("seeded"))

	nodes, total := h.svc.Nodes(r.Context(), graphservice.NodeFilter{
		Category: q.Get("category"),
		Seeded:   seeded,
		Handle:   q.Get("handle"),
		SortBy:   q.Get("sort"),
		Limit:    limit,
		Offset:   offset,
	})
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: nodes, Total: total})
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary		Get a single node
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	NodeDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Node(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteNode handles DELETE /api/nodes/{id}.
//
//	@Summary		Remove an account and its edges
//	@Tags			nodes
//	@Param			id	path	string	true	"Node id"
//	@Success		204	"Node removed"
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveNode(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEdges handles GET /api/edges.
//
//	@Summary		List edges with optional filtering
//	@Tags			edges
//	@Produce		json
//	@Param			type	query		string	false	"Edge type"	Enums(status, retweet, quote, reply)
//	@Param			src		query		string	false	"Source node id"
//	@Param			dest	query		string	false	"Destination node id"
//	@Param			hashtag	query		string	false	"Hashtag"
//	@Param			since	query		string	false	"Earliest creation time"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	EdgeListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [get]
func (h *Handler) ListEdges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	var since time.Time
	if s := q.Get("since"); s != "" {
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid 'since' time"))
			return
		}
		since = t
	}

	edges, total := h.svc.Edges(r.Context(), graphservice.EdgeFilter{
		Kind:    q.Get("type"),
		Src:     q.Get("src"),
		Dest:    q.Get("dest"),
		Hashtag: q.Get("hashtag"),
		Since:   since,
		Limit:   limit,
		Offset:  offset,
	})
	writeJSON(w, http.StatusOK, EdgeListResponse{Edges: edges, Total: total})
}

// Frequencies handles GET /api/frequencies/{field}.
//
//	@Summary		Count a field over the graph
//	@Tags			reports
//	@Produce		json
//	@Param			field		path		string	true	"Field"	Enums(hashtags, mentions, lang, type, day, category)
//	@Param			normalize	query		bool	false	"Divide by the total"
//	@Param			top			query		int		false	"Keep values reaching the n-th largest count"
//	@Param			percentile	query		number	false	"Keep values reaching this percentile"
//	@Success		200			{object}	map[string]number
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/frequencies/{field} [get]
func (h *Handler) Frequencies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts []seq.FreqOption
	if ok, _ := strconv.ParseBool(q.Get("normalize")); ok {
		opts = append(opts, seq.Normalize())
	}
	if s := q.Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("'top' must be a positive integer"))
			return
		}
		opts = append(opts, seq.Top(n))
	}
	if s := q.Get("percentile"); s != "" {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(p) || p < 0 || p > 100 {
			writeJSON(w, http.StatusBadRequest, errorBody("'percentile' must be within [0, 100]"))
			return
		}
		opts = append(opts, seq.Percentile(p))
	}

	out, err := h.svc.Frequencies(r.Context(), chi.URLParam(r, "field"), opts...)
	if err != nil {
		writeError(w, "frequencies", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Matrix handles GET /api/matrix.
//
//	@Summary		Interaction counts between categories
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	map[string]map[string]int
//	@Security		BearerAuth
//	@Router			/matrix [get]
func (h *Handler) Matrix(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Matrix(r.Context()))
}

// TopRetweeters handles GET /api/retweeters.
//
//	@Summary		Rank accounts by retweets made
//	@Tags			reports
//	@Produce		json
//	@Param			top	query		int	false	"Keep the top n (ties included)"
//	@Success		200	{object}	RetweetersResponse
//	@Security		BearerAuth
//	@Router			/retweeters [get]
func (h *Handler) TopRetweeters(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("top"))
	writeJSON(w, http.StatusOK, RetweetersResponse{Retweeters: h.svc.TopRetweeters(r.Context(), n)})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across saved post texts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchPosts(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Propagate handles POST /api/propagate.
//
//	@Summary		Seed and propagate category labels
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PropagateRequest	false	"Tagging override"
//	@Success		200		{object}	PropagateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/propagate [post]
func (h *Handler) Propagate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Tagging json.RawMessage `json:"tagging"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var t propagate.Tagging
	if len(req.Tagging) > 0 && string(req.Tagging) != "null" {
		parsed, err := tagging.Parse(req.Tagging)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		t = parsed
	}

	res, err := h.svc.Propagate(r.Context(), t)
	if err != nil {
		writeError(w, "propagate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AttachMetric handles POST /api/metrics/{name}.
//
//	@Summary		Attach a centrality metric to every node
//	@Tags			graph
//	@Produce		json
//	@Param			name	path		string	true	"Metric pass"	Enums(hits, pagerank, betweenness, indegree, outdegree, currentflow)
//	@Success		200		{object}	MetricResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metrics/{name} [post]
func (h *Handler) AttachMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.svc.AttachMetric(r.Context(), name); err != nil {
		writeError(w, "attach metric", err)
		return
	}
	writeJSON(w, http.StatusOK, MetricResponse{Metric: name})
}

// Snapshot handles POST /api/snapshot.
//
//	@Summary		Persist the graph
//	@Tags			graph
//	@Success		204	"Snapshot written"
//	@Security		BearerAuth
//	@Router			/snapshot [post]
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Save(r.Context()); err != nil {
		writeError(w, "snapshot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
