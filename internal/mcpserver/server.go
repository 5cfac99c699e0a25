// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes graph queries for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/twigraph/internal/graphservice"
	"github.com/starford/twigraph/internal/ingest"
	"github.com/starford/twigraph/internal/seq"
	"github.com/starford/twigraph/internal/storage"
)

const schemaURI = "twigraph://graph-schema"

// Server wraps the MCP server with the graph tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *graphservice.Service
	store  storage.Provider
	ledger ingest.Ledger
}

// New creates a new MCP server with all tools registered. The add_chunk
// tool is only registered when store and ledger are non-nil.
func New(svc *graphservice.Service, store storage.Provider, ledger ingest.Ledger) *Server {
	s := &Server{svc: svc, store: store, ledger: ledger}

	s.mcp = server.NewMCPServer(
		"twigraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("graph_info",
		mcp.WithDescription("Summarize the graph: node, account and edge counts, edges per type, labeled and seeded accounts."),
	), s.graphInfo)

	s.mcp.AddTool(mcp.NewTool("node_category",
		mcp.WithDescription("Return the effective category and label distribution of one account."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Account id or handle")),
	), s.nodeCategory)

	s.mcp.AddTool(mcp.NewTool("top_nodes",
		mcp.WithDescription("List the accounts with the highest value of an attached metric. "+
			"Attach the metric first through the API or the enrich command."),
		mcp.WithString("metric", mcp.Required(), mcp.Description("Metric name, e.g. pagerank, hub, authority, betweenness")),
		mcp.WithNumber("limit", mcp.Description("Number of accounts (default 10)")),
		mcp.WithString("category", mcp.Description("Only accounts of this effective category")),
	), s.topNodes)

	s.mcp.AddTool(mcp.NewTool("frequencies",
		mcp.WithDescription("Count a field over the graph, most frequent first."),
		mcp.WithString("field", mcp.Required(), mcp.Description("One of hashtags, mentions, lang, type, day, category")),
		mcp.WithNumber("top", mcp.Description("Keep values reaching the n-th largest count")),
		mcp.WithNumber("percentile", mcp.Description("Keep values reaching this percentile (0-100)")),
		mcp.WithBoolean("normalize", mcp.Description("Divide counts by their total")),
	), s.frequencies)

	s.mcp.AddTool(mcp.NewTool("interaction_matrix",
		mcp.WithDescription("Count interactions between categories: matrix[from][to]."),
	), s.interactionMatrix)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post texts and hashtags of the saved snapshot."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("get_graph_schema",
		mcp.WithDescription("Returns the description of node and edge attributes, categories and metrics. "+
			"Call this before interpreting other tool results."),
	), s.getGraphSchema)

	if store != nil && ledger != nil {
		s.mcp.AddTool(mcp.NewTool("add_chunk",
			mcp.WithDescription("Store a chunk of raw posts in the input directory and ingest it."),
			mcp.WithString("content", mcp.Required(), mcp.Description("JSON array of posts, or a base64 data URI of a gzipped array")),
			mcp.WithString("name", mcp.Description("File name (chunk-*.json); generated when empty")),
		), s.addChunk)
	}

	s.mcp.AddResource(
		mcp.NewResource(schemaURI, "Graph Schema",
			mcp.WithResourceDescription("Attributes of nodes and edges, category rules and metric names."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) graphInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Info(ctx))
}

func (s *Server) nodeCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Node(ctx, key)
	if err != nil {
		n, err = s.byHandle(ctx, key)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", key)), nil
	}
	return jsonResult(map[string]any{
		"id":           n.ID,
		"handle":       n.Handle,
		"category":     n.Category,
		"seeded":       n.InitialLabel,
		"distribution": n.Distribution,
	})
}

func (s *Server) byHandle(ctx context.Context, handle string) (*graphservice.NodeDetail, error) {
	candidates, _ := s.svc.Nodes(ctx, graphservice.NodeFilter{Handle: handle})
	for _, c := range candidates {
		if c.Handle == handle {
			return s.svc.Node(ctx, c.ID)
		}
	}
	return nil, fmt.Errorf("no account with handle %q", handle)
}

func (s *Server) topNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metric, err := req.RequireString("metric")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, _ := s.svc.Nodes(ctx, graphservice.NodeFilter{
		Category: req.GetString("category", ""),
		SortBy:   metric,
		Limit:    req.GetInt("limit", 10),
	})
	if len(nodes) > 0 {
		if _, ok := nodes[0].Metrics[metric]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("metric %q is not attached", metric)), nil
		}
	}
	return jsonResult(nodes)
}

func (s *Server) frequencies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var opts []seq.FreqOption
	if req.GetBool("normalize", false) {
		opts = append(opts, seq.Normalize())
	}
	if n := req.GetInt("top", 0); n > 0 {
		opts = append(opts, seq.Top(n))
	}
	if p := req.GetFloat("percentile", -1); p >= 0 {
		opts = append(opts, seq.Percentile(p))
	}
	out, err := s.svc.Frequencies(ctx, field, opts...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) interactionMatrix(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Matrix(ctx))
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.SearchPosts(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits)
}

func (s *Server) getGraphSchema(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GraphSchema), nil
}

func (s *Server) readSchemaResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "text/markdown",
			Text:     GraphSchema,
		},
	}, nil
}
