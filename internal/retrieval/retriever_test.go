package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/plazadev/plaza/internal/storage"
)

type fakeEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.embedFn(ctx, text)
}

type fakeStore struct {
	listFn func(city string, limit int) ([]storage.Candidate, error)
}

func (f *fakeStore) ListCandidates(city string, limit int) ([]storage.Candidate, error) {
	return f.listFn(city, limit)
}

func candidate(id, title, content string, emb []float32) storage.Candidate {
	return storage.Candidate{
		Chunk: storage.Chunk{
			ID:        id,
			SourceID:  "src-" + id,
			City:      "vila",
			Content:   content,
			Embedding: emb,
		},
		SourceTitle: title,
	}
}

func TestSearchVectorRanking(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	store := &fakeStore{listFn: func(string, int) ([]storage.Candidate, error) {
		return []storage.Candidate{
			candidate("b", "Agenda", "contenido b", []float32{0.8, 0.6}),
			candidate("a", "Conciertos", "contenido a", []float32{1, 0}),
			candidate("c", "Irrelevante", "contenido c", []float32{0, 1}),
		}, nil
	}}

	got, err := NewRetriever(emb, store, Options{}).Search(context.Background(), "conciertos", "vila")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ChunkID != "a" || got[1].ChunkID != "b" {
		t.Errorf("order = [%s %s], want [a b]", got[0].ChunkID, got[1].ChunkID)
	}
	if got[0].Method != MethodVector {
		t.Errorf("method = %s, want vector", got[0].Method)
	}
	if got[0].Similarity < got[1].Similarity {
		t.Errorf("results not sorted by descending similarity: %v < %v", got[0].Similarity, got[1].Similarity)
	}
	if got[0].SourceTitle != "Conciertos" {
		t.Errorf("source title = %q, want Conciertos", got[0].SourceTitle)
	}
}

func TestSearchTopKTruncation(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	store := &fakeStore{listFn: func(string, int) ([]storage.Candidate, error) {
		var cs []storage.Candidate
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			cs = append(cs, candidate(id, "T", "x", []float32{1, 0}))
		}
		return cs, nil
	}}

	got, err := NewRetriever(emb, store, Options{}).Search(context.Background(), "q", "vila")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d results, want top 3", len(got))
	}
}

// An embedding outage must not fail the search: every candidate is scored
// lexically instead.
func TestSearchLexicalFallbackOnEmbedError(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("embedding service unavailable")
	}}
	store := &fakeStore{listFn: func(string, int) ([]storage.Candidate, error) {
		return []storage.Candidate{
			candidate("a", "Agenda", "conciertos este fin de semana en la plaza", []float32{1, 0}),
			candidate("b", "Padrón", "certificado de empadronamiento", []float32{0, 1}),
		}, nil
	}}

	got, err := NewRetriever(emb, store, Options{}).Search(context.Background(), "conciertos fin de semana", "vila")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].ChunkID != "a" || got[0].Method != MethodLexical {
		t.Errorf("result = %+v, want chunk a scored lexically", got[0])
	}
}

// Chunks whose embedding has not been attached yet are still searchable
// through lexical scoring alongside vector-scored chunks.
func TestSearchMixedMethods(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	store := &fakeStore{listFn: func(string, int) ([]storage.Candidate, error) {
		return []storage.Candidate{
			candidate("embedded", "Agenda", "otra cosa", []float32{1, 0}),
			candidate("pending", "Noticias", "conciertos en la plaza mayor", nil),
		}, nil
	}}

	got, err := NewRetriever(emb, store, Options{}).Search(context.Background(), "conciertos plaza", "vila")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	methods := map[string]string{}
	for _, r := range got {
		methods[r.ChunkID] = r.Method
	}
	if methods["embedded"] != MethodVector || methods["pending"] != MethodLexical {
		t.Errorf("methods = %v", methods)
	}
}

// Dimension mismatches are a data problem in one chunk, not a search failure.
func TestSearchSkipsMismatchedDimensions(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	store := &fakeStore{listFn: func(string, int) ([]storage.Candidate, error) {
		return []storage.Candidate{
			candidate("bad", "T", "x", []float32{1, 0, 0}),
			candidate("good", "T", "x", []float32{1, 0}),
		}, nil
	}}

	got, err := NewRetriever(emb, store, Options{}).Search(context.Background(), "q", "vila")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ChunkID != "good" {
		t.Errorf("results = %+v, want only the compatible chunk", got)
	}
}

func TestSearchLexicalThresholdStrict(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("down")
	}}
	store := &fakeStore{listFn: func(string, int) ([]storage.Candidate, error) {
		// This pairing scores exactly 0.5 lexically.
		return []storage.Candidate{
			candidate("a", "T", "programa de la fiesta mayor", nil),
		}, nil
	}}

	got, err := NewRetriever(emb, store, Options{LexicalThreshold: 0.5}).
		Search(context.Background(), "fiesta mayor, otra cosa rara", "vila")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results, want 0: threshold comparison is strict", len(got))
	}
}

func TestSearchStoreError(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	store := &fakeStore{listFn: func(string, int) ([]storage.Candidate, error) {
		return nil, errors.New("disk gone")
	}}

	if _, err := NewRetriever(emb, store, Options{}).Search(context.Background(), "q", "vila"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestSearchPassesCityAndLimit(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	var gotCity string
	var gotLimit int
	store := &fakeStore{listFn: func(city string, limit int) ([]storage.Candidate, error) {
		gotCity, gotLimit = city, limit
		return nil, nil
	}}

	if _, err := NewRetriever(emb, store, Options{CandidateLimit: 7}).Search(context.Background(), "q", "vila"); err != nil {
		t.Fatal(err)
	}
	if gotCity != "vila" || gotLimit != 7 {
		t.Errorf("store called with (%q, %d), want (vila, 7)", gotCity, gotLimit)
	}
}
