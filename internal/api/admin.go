package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plazadev/plaza/internal/ingest"
	"github.com/plazadev/plaza/internal/storage"
)

const maxURLFetchSize = 5 << 20 // 5MB

// IngestSourceRequest adds one document to a city's knowledge library.
type IngestSourceRequest struct {
	City    string `json:"city_slug"`
	Title   string `json:"title"`
	Type    string `json:"type"` // "text", "url" or "file"
	Kind    string `json:"kind"` // "page", "file" or "answer"; derived from Type when empty
	Content string `json:"content"`
	URL     string `json:"url"`
}

type sourceView struct {
	ID        string `json:"id"`
	City      string `json:"city_slug"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	OriginURL string `json:"origin_url,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toSourceView(s storage.Source) sourceView {
	return sourceView{
		ID:        s.ID,
		City:      s.City,
		Title:     s.Title,
		Kind:      s.Kind,
		OriginURL: s.OriginURL,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

func handleIngestSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodySize)
		defer r.Body.Close()

		var req IngestSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.City == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "city_slug is required")
			return
		}
		if req.Content == "" && req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of content or url is required")
			return
		}
		if req.Type == "" {
			req.Type = "text"
		}

		var text string
		switch req.Type {
		case "url":
			if req.URL == "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required for type url")
				return
			}
			fetched, err := fetchAndExtract(r.Context(), deps.HTTPClient, req.URL)
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "failed to fetch url: %v", err)
				return
			}
			text = fetched
			if req.Title == "" {
				req.Title = req.URL
			}

		case "file":
			decoded, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
				return
			}
			text, err = extractFile(decoded)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to extract file text: %v", err)
				return
			}

		case "text":
			text = req.Content

		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown type %q", req.Type)
			return
		}

		if req.Kind == "" {
			switch req.Type {
			case "url":
				req.Kind = "page"
			case "file":
				req.Kind = "file"
			default:
				req.Kind = "answer"
			}
		}

		src, chunks, err := deps.Ingester.Ingest(req.City, req.Title, req.Kind, req.URL, text)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to ingest: %v", err)
			return
		}

		writeJSON(w, map[string]any{
			"id":     src.ID,
			"chunks": chunks,
			"status": "pending_embeddings",
		})
	}
}

// fetchAndExtract downloads a page and extracts its text. HTML and PDF get
// their structure stripped; anything else is taken verbatim.
func fetchAndExtract(ctx context.Context, client *http.Client, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.New(resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxURLFetchSize))
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "pdf"):
		return ingest.ExtractPDF(bytes.NewReader(body), int64(len(body)))
	case strings.Contains(contentType, "html") || looksLikeHTML(body):
		return ingest.ExtractHTML(bytes.NewReader(body))
	default:
		return string(body), nil
	}
}

func extractFile(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return ingest.ExtractPDF(bytes.NewReader(data), int64(len(data)))
	case looksLikeHTML(data):
		return ingest.ExtractHTML(bytes.NewReader(data))
	default:
		return string(data), nil
	}
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 256 {
		head = head[:256]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.Contains(head, []byte("<html"))
}

func handleListSources(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("city_slug")
		if city == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "city_slug is required")
			return
		}

		sources, err := deps.Store.ListSources(city)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sources: %v", err)
			return
		}

		views := make([]sourceView, len(sources))
		for i, s := range sources {
			views[i] = toSourceView(s)
		}
		writeJSON(w, views)
	}
}

func handleGetSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		src, err := deps.Store.GetSource(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "source not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get source: %v", err)
			return
		}
		writeJSON(w, toSourceView(src))
	}
}

func handleDeleteSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteSource(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "source not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete source: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("city_slug")
		if city == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "city_slug is required")
			return
		}

		stats, err := deps.Store.CityStats(city)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get stats: %v", err)
			return
		}
		writeJSON(w, map[string]any{
			"city_slug":       city,
			"sources":         stats.Sources,
			"chunks":          stats.Chunks,
			"embedded_chunks": stats.EmbeddedChunks,
		})
	}
}
