package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/twigraph/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/graph", h.Graph)

	r.Get("/nodes", h.ListNodes)
	r.Get("/nodes/{id}", h.GetNode)
	r.Delete("/nodes/{id}", h.DeleteNode)

	r.Get("/edges", h.ListEdges)

	// Reports.
	r.Get("/frequencies/{field}", h.Frequencies)
	r.Get("/matrix", h.Matrix)
	r.Get("/retweeters", h.TopRetweeters)
	r.Get("/search", h.Search)

	// Mutations.
	r.Post("/propagate", h.Propagate)
	r.Post("/metrics/{name}", h.AttachMetric)
	r.Post("/snapshot", h.Snapshot)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
