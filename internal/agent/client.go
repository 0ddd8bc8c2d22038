// Package agent is the HTTP client for the external full-reasoning-agent
// collaborator. The agent runs its own retrieval and search tools; the core
// only sends the query and city and receives the final answer.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 4 << 10
)

// Client communicates with the agent engine over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client targeting the agent engine at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type queryRequest struct {
	Prompt string `json:"prompt"`
	City   string `json:"city"`
}

type queryResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// Answer holds the agent's reply.
type Answer struct {
	Text  string
	Model string
}

// Query sends the prompt to the agent engine and waits for its answer.
// The agent may take a long time; the call is bounded by a generous timeout
// on top of whatever deadline ctx already carries.
func (c *Client) Query(ctx context.Context, prompt, city string) (Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	body, err := json.Marshal(queryRequest{Prompt: prompt, City: city})
	if err != nil {
		return Answer{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/agent/query", bytes.NewReader(body))
	if err != nil {
		return Answer{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Answer{}, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Answer{}, fmt.Errorf("decoding response: %w", err)
	}
	if out.Response == "" {
		return Answer{}, fmt.Errorf("agent returned an empty response")
	}

	model := out.Model
	if model == "" {
		model = "agent"
	}
	return Answer{Text: out.Response, Model: model}, nil
}
