package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plazadev/plaza/internal/storage"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 16
	defaultConcurrency  = 4
)

// EmbedStore supplies chunks awaiting embeddings and persists the results.
type EmbedStore interface {
	ListUnembedded(limit int) ([]storage.Chunk, error)
	AttachEmbedding(chunkID string, vec []float32) error
}

// ContentEmbedder generates embeddings for text.
type ContentEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Worker backfills embeddings for chunks ingested without one. It polls the
// store and embeds batches with bounded concurrency, so a burst of ingested
// documents does not flood the embedding service.
type Worker struct {
	store       EmbedStore
	embedder    ContentEmbedder
	poll        time.Duration
	batch       int
	concurrency int
	logger      *slog.Logger
}

// NewWorker creates a Worker. Non-positive tuning values use the defaults.
func NewWorker(store EmbedStore, embedder ContentEmbedder, pollInterval time.Duration, batch, concurrency int) *Worker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if batch <= 0 {
		batch = defaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Worker{
		store:       store,
		embedder:    embedder,
		poll:        pollInterval,
		batch:       batch,
		concurrency: concurrency,
		logger:      slog.Default(),
	}
}

// Run polls for pending chunks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("embedding backfill iteration failed", "error", err)
		}
		if done > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce embeds one batch of pending chunks and reports how many were
// attached. A chunk whose embedding fails stays pending and is retried on a
// later pass; a chunk embedded concurrently by another writer is skipped.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	chunks, err := w.store.ListUnembedded(w.batch)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	var attached atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, chunk := range chunks {
		g.Go(func() error {
			vec, err := w.embedder.Embed(gctx, chunk.Content)
			if err != nil {
				w.logger.Warn("embedding chunk failed, will retry", "chunk", chunk.ID, "error", err)
				return nil
			}
			err = w.store.AttachEmbedding(chunk.ID, vec)
			switch {
			case errors.Is(err, storage.ErrEmbeddingAttached):
				return nil
			case err != nil:
				w.logger.Warn("attaching embedding failed", "chunk", chunk.ID, "error", err)
				return nil
			}
			attached.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(attached.Load()), err
	}
	return int(attached.Load()), nil
}
