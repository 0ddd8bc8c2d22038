package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/plazadev/plaza/internal/classify"
	"github.com/plazadev/plaza/internal/router"
)

func TestQuery_Success(t *testing.T) {
	var captured router.Request
	deps := testDeps()
	deps.Router = &fakeRouter{
		route: func(_ context.Context, req router.Request) router.Outcome {
			captured = req
			return router.Outcome{
				Response:     "El mercado abre el sábado por la mañana en la plaza mayor.",
				StrategyUsed: classify.StrategyRAG,
				ModelUsed:    "gemini-2.0-flash",
			}
		},
	}
	h := NewHandler(deps)

	body := `{"query":"¿Cuándo abre el mercado?","city_slug":"villarreal","user_id":"u-7"}`
	rr := doRequest(h, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if errField, ok := raw["error"]; !ok || string(errField) != "null" {
		t.Errorf("error field = %s, want explicit null on success", errField)
	}

	var resp QueryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.Response != "El mercado abre el sábado por la mañana en la plaza mayor." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.StrategyUsed != string(classify.StrategyRAG) {
		t.Errorf("strategy_used = %q, want %q", resp.StrategyUsed, classify.StrategyRAG)
	}
	if resp.ModelUsed != "gemini-2.0-flash" {
		t.Errorf("model_used = %q, want %q", resp.ModelUsed, "gemini-2.0-flash")
	}
	if resp.ProcessingTime < 0 {
		t.Errorf("processing_time_seconds = %v, want >= 0", resp.ProcessingTime)
	}

	if captured.Query != "¿Cuándo abre el mercado?" {
		t.Errorf("routed query = %q", captured.Query)
	}
	if captured.City != "villarreal" {
		t.Errorf("routed city = %q", captured.City)
	}
	if captured.UserID != "u-7" {
		t.Errorf("routed user = %q", captured.UserID)
	}
}

func TestQuery_HistoryForwarded(t *testing.T) {
	var captured router.Request
	deps := testDeps()
	deps.Router = &fakeRouter{
		route: func(_ context.Context, req router.Request) router.Outcome {
			captured = req
			return router.Outcome{Response: "ok"}
		},
	}
	h := NewHandler(deps)

	body := `{"query":"¿y el domingo?","city_slug":"villarreal","conversation_history":[{"role":"user","content":"¿Cuándo abre el mercado?"},{"role":"assistant","content":"El sábado."}]}`
	rr := doRequest(h, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if len(captured.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(captured.History))
	}
	if captured.History[1].Role != "assistant" || captured.History[1].Content != "El sábado." {
		t.Errorf("history[1] = %+v", captured.History[1])
	}
}

func TestQuery_DefaultsAnonymousUser(t *testing.T) {
	var captured router.Request
	deps := testDeps()
	deps.Router = &fakeRouter{
		route: func(_ context.Context, req router.Request) router.Outcome {
			captured = req
			return router.Outcome{Response: "ok"}
		},
	}
	h := NewHandler(deps)

	body := `{"query":"Hola","city_slug":"villarreal"}`
	doRequest(h, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body)))

	if captured.UserID != "anonymous" {
		t.Errorf("user = %q, want %q", captured.UserID, "anonymous")
	}
}

func TestQuery_Validation(t *testing.T) {
	h := NewHandler(testDeps())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing query", `{"city_slug":"villarreal"}`},
		{"missing city", `{"query":"Hola"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(tt.body)))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			var resp struct {
				Error struct {
					Message string `json:"message"`
					Type    string `json:"type"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if resp.Error.Type != "invalid_request_error" {
				t.Errorf("error type = %q, want %q", resp.Error.Type, "invalid_request_error")
			}
		})
	}
}

func TestQuery_RoutingFailure(t *testing.T) {
	deps := testDeps()
	deps.Router = &fakeRouter{
		route: func(_ context.Context, _ router.Request) router.Outcome {
			return router.Outcome{
				Response:  router.Apology,
				ModelUsed: "error",
				Err:       errors.New("generation backend unavailable"),
			}
		},
	}
	h := NewHandler(deps)

	body := `{"query":"Hola","city_slug":"villarreal"}`
	rr := doRequest(h, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp QueryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Success {
		t.Error("success = true, want false")
	}
	if resp.Response != router.Apology {
		t.Errorf("response = %q, want apology", resp.Response)
	}
	if resp.ModelUsed != "error" {
		t.Errorf("model_used = %q, want %q", resp.ModelUsed, "error")
	}
	if resp.Error == nil || *resp.Error == "" {
		t.Error("error field should carry the cause")
	}
}
