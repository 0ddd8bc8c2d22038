package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plazadev/plaza/internal/retrieval"
	"github.com/plazadev/plaza/internal/router"
	"github.com/plazadev/plaza/internal/storage"
)

const testToken = "test-token-12345"

// --- fakes ---

type fakeRouter struct {
	route func(ctx context.Context, req router.Request) router.Outcome
}

func (f *fakeRouter) Route(ctx context.Context, req router.Request) router.Outcome {
	return f.route(ctx, req)
}

type fakeIngester struct {
	ingest func(city, title, kind, originURL, text string) (storage.Source, int, error)
}

func (f *fakeIngester) Ingest(city, title, kind, originURL, text string) (storage.Source, int, error) {
	return f.ingest(city, title, kind, originURL, text)
}

type fakeSourceStore struct {
	getSource    func(id string) (storage.Source, error)
	listSources  func(city string) ([]storage.Source, error)
	deleteSource func(id string) error
	cityStats    func(city string) (storage.Stats, error)
}

func (f *fakeSourceStore) GetSource(id string) (storage.Source, error) { return f.getSource(id) }

func (f *fakeSourceStore) ListSources(city string) ([]storage.Source, error) {
	return f.listSources(city)
}

func (f *fakeSourceStore) DeleteSource(id string) error { return f.deleteSource(id) }

func (f *fakeSourceStore) CityStats(city string) (storage.Stats, error) {
	return f.cityStats(city)
}

type fakeSearcher struct {
	search func(ctx context.Context, query, city string) ([]retrieval.SearchResult, error)
}

func (f *fakeSearcher) Search(ctx context.Context, query, city string) ([]retrieval.SearchResult, error) {
	return f.search(ctx, query, city)
}

// --- helpers ---

func testSource() storage.Source {
	return storage.Source{
		ID:        "src-1",
		City:      "villarreal",
		Title:     "Agenda cultural",
		Kind:      "page",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testDeps() Deps {
	return Deps{
		Router: &fakeRouter{
			route: func(_ context.Context, _ router.Request) router.Outcome {
				return router.Outcome{Response: "hola", ModelUsed: "gemini-2.0-flash"}
			},
		},
		Ingester: &fakeIngester{
			ingest: func(city, title, kind, originURL, _ string) (storage.Source, int, error) {
				return storage.Source{ID: "src-1", City: city, Title: title, Kind: kind, OriginURL: originURL}, 3, nil
			},
		},
		Store: &fakeSourceStore{
			getSource:    func(string) (storage.Source, error) { return testSource(), nil },
			listSources:  func(string) ([]storage.Source, error) { return []storage.Source{testSource()}, nil },
			deleteSource: func(string) error { return nil },
			cityStats:    func(string) (storage.Stats, error) { return storage.Stats{Sources: 2, Chunks: 10, EmbeddedChunks: 7}, nil },
		},
		Searcher: &fakeSearcher{
			search: func(context.Context, string, string) ([]retrieval.SearchResult, error) { return nil, nil },
		},
		AdminToken: testToken,
	}
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func doRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- tests ---

func TestHealth(t *testing.T) {
	h := NewHandler(testDeps())

	rr := doRequest(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	deps := testDeps()
	deps.Gatherer = reg
	h := NewHandler(deps)

	rr := doRequest(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	h := NewHandler(testDeps())

	rr := doRequest(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	h := NewHandler(testDeps())

	urls := []struct {
		method string
		url    string
	}{
		{http.MethodPost, "/v1/admin/sources"},
		{http.MethodGet, "/v1/admin/sources?city_slug=villarreal"},
		{http.MethodGet, "/v1/admin/sources/src-1"},
		{http.MethodDelete, "/v1/admin/sources/src-1"},
		{http.MethodGet, "/v1/admin/stats?city_slug=villarreal"},
	}
	for _, u := range urls {
		rr := doRequest(h, authReq(u.method, u.url, "", ""))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want %d", u.method, u.url, rr.Code, http.StatusUnauthorized)
		}

		rr = doRequest(h, authReq(u.method, u.url, "", "wrong-token"))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with wrong token: status = %d, want %d", u.method, u.url, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestAdminEmptyConfiguredTokenRejectsAll(t *testing.T) {
	deps := testDeps()
	deps.AdminToken = ""
	h := NewHandler(deps)

	rr := doRequest(h, authReq(http.MethodGet, "/v1/admin/stats?city_slug=villarreal", "", ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
