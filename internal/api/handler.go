// Package api exposes the query endpoint, the admin surface for managing
// knowledge sources, and the MCP server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plazadev/plaza/internal/retrieval"
	"github.com/plazadev/plaza/internal/router"
	"github.com/plazadev/plaza/internal/storage"
)

const (
	maxRequestBodySize = 1 << 20  // 1MB
	maxIngestBodySize  = 10 << 20 // 10MB
)

// QueryRouter processes one query end to end.
type QueryRouter interface {
	Route(ctx context.Context, req router.Request) router.Outcome
}

// Ingester stores extracted text as a new knowledge source.
type Ingester interface {
	Ingest(city, title, kind, originURL, text string) (storage.Source, int, error)
}

// SourceStore is the admin view over stored sources.
type SourceStore interface {
	GetSource(id string) (storage.Source, error)
	ListSources(city string) ([]storage.Source, error)
	DeleteSource(id string) error
	CityStats(city string) (storage.Stats, error)
}

// KnowledgeSearcher retrieves chunks for the MCP search tool.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query, city string) ([]retrieval.SearchResult, error)
}

// Deps holds the handler dependencies.
type Deps struct {
	Router     QueryRouter
	Ingester   Ingester
	Store      SourceStore
	Searcher   KnowledgeSearcher
	AdminToken string
	HTTPClient *http.Client
	Gatherer   prometheus.Gatherer // optional; nil disables /metrics
}

// NewHandler returns the HTTP API. The query endpoint is public; source
// management requires the admin bearer token.
func NewHandler(deps Deps) http.Handler {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/v1/query", handleQuery(deps))

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(BearerAuth(deps.AdminToken))
		r.Post("/sources", handleIngestSource(deps))
		r.Get("/sources", handleListSources(deps))
		r.Get("/sources/{id}", handleGetSource(deps))
		r.Delete("/sources/{id}", handleDeleteSource(deps))
		r.Get("/stats", handleStats(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
