package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmbeddingAttached is returned when attempting to attach an embedding to
// a chunk that already has one. Embeddings are set-once.
var ErrEmbeddingAttached = errors.New("embedding already attached")

// Source is a logical ingested document: a scraped page, an uploaded file,
// or a previously stored answer.
type Source struct {
	ID        string
	City      string
	Title     string
	Kind      string // "page", "file", "answer"
	OriginURL string
	CreatedAt time.Time
}

// Chunk is a bounded fragment of a Source's text, the unit of retrieval.
// Embedding is nil until attached by the backfill worker.
type Chunk struct {
	ID        string
	SourceID  string
	City      string
	Content   string
	Index     int
	Embedding []float32
	CreatedAt time.Time
}

// Candidate is a chunk joined with its source title, as returned to the
// retriever.
type Candidate struct {
	Chunk
	SourceTitle string
}

// Stats summarizes a city's knowledge base for the status surface.
type Stats struct {
	Sources        int
	Chunks         int
	EmbeddedChunks int
}
