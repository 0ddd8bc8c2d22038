// Package retrieval finds knowledge-library chunks relevant to a query.
// Embedded chunks are ranked by cosine similarity against the query
// embedding; chunks still waiting for an embedding, or every chunk when the
// embedding service is down, are ranked by lexical overlap instead.
package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/plazadev/plaza/internal/storage"
)

// Method names how a result was scored.
const (
	MethodVector  = "vector"
	MethodLexical = "lexical"
)

const (
	defaultTopK             = 3
	defaultCandidateLimit   = 50
	defaultVectorThreshold  = 0.5
	defaultLexicalThreshold = 0.1
)

// SearchResult is one retrieved chunk with its relevance score.
type SearchResult struct {
	ChunkID     string
	SourceID    string
	SourceTitle string
	Content     string
	Similarity  float64
	Method      string
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CandidateLister supplies the chunks to score for one city.
type CandidateLister interface {
	ListCandidates(city string, limit int) ([]storage.Candidate, error)
}

// Options tune the retriever. Zero values fall back to the defaults above.
type Options struct {
	TopK             int
	CandidateLimit   int
	VectorThreshold  float64
	LexicalThreshold float64
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = defaultTopK
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = defaultCandidateLimit
	}
	if o.VectorThreshold == 0 {
		o.VectorThreshold = defaultVectorThreshold
	}
	if o.LexicalThreshold == 0 {
		o.LexicalThreshold = defaultLexicalThreshold
	}
	return o
}

// Retriever scores stored chunks against a query.
type Retriever struct {
	embedder Embedder
	store    CandidateLister
	opts     Options
}

// NewRetriever creates a Retriever over the given embedder and store.
func NewRetriever(embedder Embedder, store CandidateLister, opts Options) *Retriever {
	return &Retriever{embedder: embedder, store: store, opts: opts.withDefaults()}
}

// Search returns the top chunks for the query within one city's library,
// ordered by descending similarity. Results below the relevant threshold are
// dropped: vector scores must reach the vector threshold, lexical scores
// must exceed the lexical one. An embedding failure degrades the whole
// search to lexical scoring instead of failing it.
func (r *Retriever) Search(ctx context.Context, query, city string) ([]SearchResult, error) {
	var (
		queryVec   []float32
		candidates []storage.Candidate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := r.embedder.Embed(gctx, query)
		if err != nil {
			slog.Warn("query embedding failed, falling back to lexical scoring", "error", err)
			return nil
		}
		queryVec = vec
		return nil
	})
	g.Go(func() error {
		var err error
		candidates, err = r.store.ListCandidates(city, r.opts.CandidateLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := r.score(query, queryVec, candidates)

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > r.opts.TopK {
		results = results[:r.opts.TopK]
	}
	return results, nil
}

func (r *Retriever) score(query string, queryVec []float32, candidates []storage.Candidate) []SearchResult {
	var results []SearchResult
	for _, c := range candidates {
		if queryVec != nil && c.Embedding != nil {
			sim, err := Cosine(queryVec, c.Embedding)
			if err != nil {
				slog.Warn("skipping chunk with incompatible embedding", "chunk", c.ID, "error", err)
				continue
			}
			if sim > 1 || sim < -1 {
				slog.Warn("cosine similarity out of range", "chunk", c.ID, "similarity", sim)
			}
			if sim >= r.opts.VectorThreshold {
				results = append(results, toResult(c, sim, MethodVector))
			}
			continue
		}

		sim := LexicalScore(query, c.Content)
		if sim > r.opts.LexicalThreshold {
			results = append(results, toResult(c, sim, MethodLexical))
		}
	}
	return results
}

func toResult(c storage.Candidate, sim float64, method string) SearchResult {
	return SearchResult{
		ChunkID:     c.ID,
		SourceID:    c.SourceID,
		SourceTitle: c.SourceTitle,
		Content:     c.Content,
		Similarity:  sim,
		Method:      method,
	}
}
