// Package genai talks to the external text-generation and embedding
// collaborator. The core treats it as an opaque service: prompts in, text or
// vectors out.
package genai

import "context"

// Result is a completed generation.
type Result struct {
	Text  string
	Model string
}

// Generator produces text completions. When grounded is true the collaborator
// augments generation with live web search.
type Generator interface {
	Generate(ctx context.Context, prompt string, grounded bool) (Result, error)
}

// Embedder produces a fixed-length vector for a text string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine is the full collaborator surface.
type Engine interface {
	Generator
	Embedder
}
