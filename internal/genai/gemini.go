package genai

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
	embedTimeout    = 10 * time.Second
	generateTimeout = 60 * time.Second
	maxErrorBody    = 4 << 10
)

// Client communicates with a Gemini-style generative language API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string // grounded-search generation
	liteModel  string // plain generation
	embedModel string
	httpClient *http.Client
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	LiteModel  string
	EmbedModel string
}

// NewClient creates a Client for the given API endpoint and models.
func NewClient(opts ClientOptions) *Client {
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		liteModel:  opts.LiteModel,
		embedModel: opts.EmbedModel,
		httpClient: &http.Client{},
	}
}

// Compile-time check that Client implements Engine.
var _ Engine = (*Client)(nil)

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts"`
}

type embedRequest struct {
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{
		Content: content{Parts: []contentPart{{Text: text}}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", c.baseURL, c.embedModel)
	raw, err := c.post(ctx, url, body)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response contained no values")
	}

	vec := make([]float32, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		vec[i] = float32(v)
	}
	return vec, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate produces a completion for the prompt. Grounded requests use the
// full model with the search tool enabled; ungrounded requests use the lite
// model.
func (c *Client) Generate(ctx context.Context, prompt string, grounded bool) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	model := c.liteModel
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []contentPart{{Text: prompt}}}},
	}
	if grounded {
		model = c.model
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	raw, err := c.post(ctx, url, body)
	if err != nil {
		return Result{}, fmt.Errorf("generation request: %w", err)
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, fmt.Errorf("decoding generation response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("generation response contained no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return Result{Text: sb.String(), Model: model}, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return io.ReadAll(resp.Body)
}
