package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plazadev/plaza/internal/storage"
)

// SourceStore persists a source and its chunks.
type SourceStore interface {
	InsertSource(src storage.Source) error
	InsertChunks(chunks []storage.Chunk) error
}

// Ingestor writes extracted text into the knowledge library. Embeddings are
// not generated here; the backfill worker attaches them afterwards.
type Ingestor struct {
	store        SourceStore
	maxChunkSize int
}

// NewIngestor creates an Ingestor. maxChunkSize <= 0 uses the default.
func NewIngestor(store SourceStore, maxChunkSize int) *Ingestor {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultMaxChunkSize
	}
	return &Ingestor{store: store, maxChunkSize: maxChunkSize}
}

// Ingest chunks the text and stores it as a new source for the city.
// It returns the stored source and the number of chunks created.
func (in *Ingestor) Ingest(city, title, kind, originURL, text string) (storage.Source, int, error) {
	chunks := SplitChunks(text, in.maxChunkSize)
	if len(chunks) == 0 {
		return storage.Source{}, 0, fmt.Errorf("no text to ingest")
	}

	now := time.Now().UTC()
	src := storage.Source{
		ID:        uuid.New().String(),
		City:      city,
		Title:     title,
		Kind:      kind,
		OriginURL: originURL,
		CreatedAt: now,
	}
	if err := in.store.InsertSource(src); err != nil {
		return storage.Source{}, 0, fmt.Errorf("saving source: %w", err)
	}

	records := make([]storage.Chunk, len(chunks))
	for i, content := range chunks {
		records[i] = storage.Chunk{
			ID:        uuid.New().String(),
			SourceID:  src.ID,
			City:      city,
			Content:   content,
			Index:     i,
			CreatedAt: now,
		}
	}
	if err := in.store.InsertChunks(records); err != nil {
		return storage.Source{}, 0, fmt.Errorf("saving chunks: %w", err)
	}
	return src, len(records), nil
}
