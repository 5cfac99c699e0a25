package api

import (
	"github.com/starford/twigraph/internal/analysis"
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/graphservice"
	"github.com/starford/twigraph/internal/models"
	"github.com/starford/twigraph/internal/propagate"
)

// NodeSummary is one row of a node listing (aliased from the domain layer).
type NodeSummary = graphservice.NodeSummary

// NodeDetail is the full node response type (aliased from the domain layer).
type NodeDetail = graphservice.NodeDetail

// NodeListResponse wraps paginated node listings.
type NodeListResponse struct {
	Nodes []NodeSummary `json:"nodes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// EdgeListResponse wraps paginated edge listings.
type EdgeListResponse struct {
	Edges []graph.EdgeRecord `json:"edges" validate:"required"`
	Total int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps post search hits.
type SearchResponse struct {
	Results []models.PostHit `json:"results" validate:"required"`
}

// RetweetersResponse wraps the retweeter ranking.
type RetweetersResponse struct {
	Retweeters []analysis.Retweeter `json:"retweeters" validate:"required"`
}

// PropagateRequest optionally overrides the configured tagging.
type PropagateRequest struct {
	Tagging propagate.Tagging `json:"tagging,omitempty"`
}

// PropagateResponse is returned after a propagation run.
type PropagateResponse = graphservice.PropagateResult

// MetricResponse is returned after a metric pass.
type MetricResponse struct {
	Metric string `json:"metric" example:"pagerank" validate:"required"`
}
