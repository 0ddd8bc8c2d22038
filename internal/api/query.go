package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/plazadev/plaza/internal/composer"
	"github.com/plazadev/plaza/internal/router"
)

// QueryRequest is one user query against a city's assistant.
type QueryRequest struct {
	Query   string             `json:"query"`
	City    string             `json:"city_slug"`
	UserID  string             `json:"user_id"`
	History []composer.Message `json:"conversation_history"`
}

// QueryResponse mirrors the routing outcome for API consumers.
type QueryResponse struct {
	Success         bool    `json:"success"`
	Response        string  `json:"response"`
	StrategyUsed    string  `json:"strategy_used"`
	ModelUsed       string  `json:"model_used"`
	SearchPerformed bool    `json:"search_performed"`
	FallbackUsed    bool    `json:"fallback_used"`
	ProcessingTime  float64 `json:"processing_time_seconds"`
	Error           *string `json:"error"`
}

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}
		if req.City == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "city_slug is required")
			return
		}
		if req.UserID == "" {
			req.UserID = "anonymous"
		}

		start := time.Now()
		out := deps.Router.Route(r.Context(), router.Request{
			Query:   req.Query,
			City:    req.City,
			UserID:  req.UserID,
			History: req.History,
		})

		resp := QueryResponse{
			Success:         out.Err == nil,
			Response:        out.Response,
			StrategyUsed:    string(out.StrategyUsed),
			ModelUsed:       out.ModelUsed,
			SearchPerformed: out.SearchPerformed,
			FallbackUsed:    out.FallbackUsed,
			ProcessingTime:  time.Since(start).Seconds(),
		}
		if out.Err != nil {
			msg := out.Err.Error()
			resp.Error = &msg
		}
		writeJSON(w, resp)
	}
}
