// Package router drives a query through the execution strategy chosen by the
// classifier. It is a small state machine: every query starts in the start
// state, moves to the state named by the suggested strategy, and ends either
// with an answer or in the error state. The only lateral transition is the
// single fallback from knowledge retrieval to live search.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/plazadev/plaza/internal/agent"
	"github.com/plazadev/plaza/internal/classify"
	"github.com/plazadev/plaza/internal/composer"
	"github.com/plazadev/plaza/internal/genai"
	"github.com/plazadev/plaza/internal/retrieval"
)

// State is one node of the routing state machine.
type State string

const (
	StateStart  State = "start"
	StateDirect State = "direct-generation"
	StateRAG    State = "rag-retrieval"
	StateSearch State = "live-search"
	StateAgent  State = "full-agent"
	StateError  State = "error"
)

// Apology is the user-facing reply when processing fails.
const Apology = "Lo siento, hubo un problema procesando tu consulta. Por favor, inténtalo de nuevo."

// fallbackMinLength is the shortest RAG answer considered useful. Anything
// shorter means the model had nothing to work with.
const fallbackMinLength = 50

// fallbackPhrases in a RAG answer mean the library had no relevant
// information, so live search gets a chance.
var fallbackPhrases = []string{
	"no hay eventos",
	"No se encontraron",
	composer.NoContext,
}

// Request is one user query with its conversational context.
type Request struct {
	Query   string
	City    string
	UserID  string
	History []composer.Message
}

// Outcome is the routed answer plus the decision trail that produced it.
type Outcome struct {
	Response        string
	Classification  classify.Classification
	StrategyUsed    classify.Strategy
	ModelUsed       string
	SearchPerformed bool
	FallbackUsed    bool
	Trace           []State
	Err             error
}

// Classifier assigns queries to intent classes.
type Classifier interface {
	Classify(query, city string) classify.Classification
}

// Searcher retrieves knowledge-library chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query, city string) ([]retrieval.SearchResult, error)
}

// Generator produces model answers, optionally grounded in web search.
type Generator interface {
	Generate(ctx context.Context, prompt string, grounded bool) (genai.Result, error)
}

// Agent answers through the external full-reasoning agent.
type Agent interface {
	Query(ctx context.Context, prompt, city string) (agent.Answer, error)
}

// Router routes classified queries to their execution strategy.
type Router struct {
	classifier Classifier
	retriever  Searcher
	generator  Generator
	agent      Agent
	metrics    *Metrics
	now        func() time.Time
}

// New wires a Router. metrics may be nil.
func New(classifier Classifier, retriever Searcher, generator Generator, agent Agent, metrics *Metrics) *Router {
	return &Router{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		agent:      agent,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Route classifies the query, executes the chosen strategy and returns the
// outcome. Failures never escape as errors to the caller: the error state
// produces an apology and Outcome.Err carries the cause.
func (r *Router) Route(ctx context.Context, req Request) Outcome {
	start := r.now()
	classification := r.classifier.Classify(req.Query, req.City)

	slog.Info("query classified",
		"city", req.City,
		"class", classification.Class,
		"confidence", classification.Confidence,
		"strategy", classification.Strategy)

	out := Outcome{
		Classification: classification,
		StrategyUsed:   classification.Strategy,
		Trace:          []State{StateStart},
	}

	switch classification.Strategy {
	case classify.StrategyDirect:
		r.runDirect(ctx, req, &out)
	case classify.StrategyRAG:
		r.runRAG(ctx, req, &out)
	case classify.StrategySearch:
		r.runSearch(ctx, req, &out)
	case classify.StrategyAgent:
		r.runAgent(ctx, req, &out)
	}

	elapsed := r.now().Sub(start)
	if out.Err != nil {
		r.fail(&out)
	}
	r.metrics.observe(string(out.StrategyUsed), elapsed)

	slog.Info("query routed",
		"city", req.City,
		"strategy", out.StrategyUsed,
		"model", out.ModelUsed,
		"fallback", out.FallbackUsed,
		"duration", elapsed,
		"error", out.Err)
	return out
}

func (r *Router) runDirect(ctx context.Context, req Request, out *Outcome) {
	out.Trace = append(out.Trace, StateDirect)

	res, err := r.generator.Generate(ctx, simplePrompt(req.City, req.Query, req.History, r.now()), false)
	if err != nil {
		out.Err = err
		return
	}
	out.Response = res.Text
	out.ModelUsed = res.Model
}

// runRAG answers from the local knowledge library. Any failure along the
// way, and any answer that admits it found nothing, hands the query to live
// search instead of surfacing an error.
func (r *Router) runRAG(ctx context.Context, req Request, out *Outcome) {
	out.Trace = append(out.Trace, StateRAG)

	text, model, ok := r.tryRAG(ctx, req)
	if !ok {
		slog.Info("knowledge retrieval found nothing useful, falling back to live search", "city", req.City)
		r.metrics.fallback()
		out.FallbackUsed = true
		out.StrategyUsed = classify.StrategySearch
		r.runSearch(ctx, req, out)
		return
	}
	out.Response = text
	out.ModelUsed = model
}

func (r *Router) tryRAG(ctx context.Context, req Request) (text, model string, ok bool) {
	results, err := r.retriever.Search(ctx, req.Query, req.City)
	if err != nil {
		slog.Warn("knowledge retrieval failed", "error", err)
		return "", "", false
	}
	if len(results) == 0 {
		return "", "", false
	}

	res, err := r.generator.Generate(ctx, composer.Compose(req.City, req.Query, results, req.History), false)
	if err != nil {
		slog.Warn("grounded generation failed", "error", err)
		return "", "", false
	}
	if !useful(res.Text) {
		return "", "", false
	}
	return res.Text, res.Model, true
}

func (r *Router) runSearch(ctx context.Context, req Request, out *Outcome) {
	out.Trace = append(out.Trace, StateSearch)
	out.SearchPerformed = true

	res, err := r.generator.Generate(ctx, searchPrompt(req.City, req.Query, req.History, r.now()), true)
	if err != nil {
		out.Err = err
		return
	}
	out.Response = res.Text
	out.ModelUsed = res.Model
}

func (r *Router) runAgent(ctx context.Context, req Request, out *Outcome) {
	out.Trace = append(out.Trace, StateAgent)
	out.SearchPerformed = true

	ans, err := r.agent.Query(ctx, req.Query, req.City)
	if err != nil {
		out.Err = err
		return
	}
	out.Response = ans.Text
	out.ModelUsed = ans.Model
}

func (r *Router) fail(out *Outcome) {
	r.metrics.failure()
	out.Trace = append(out.Trace, StateError)
	out.Response = Apology
	out.ModelUsed = "error"
	out.SearchPerformed = false
}

// useful reports whether a RAG answer actually answered. Very short replies
// and replies that say the library was empty do not count.
func useful(text string) bool {
	if utf8.RuneCountInString(text) < fallbackMinLength {
		return false
	}
	for _, phrase := range fallbackPhrases {
		if strings.Contains(text, phrase) {
			return false
		}
	}
	return true
}
