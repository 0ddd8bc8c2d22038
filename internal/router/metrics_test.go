package router

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plazadev/plaza/internal/classify"
	"github.com/plazadev/plaza/internal/genai"
)

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	gen := &fakeGenerator{generateFn: func(context.Context, string, bool) (genai.Result, error) {
		return genai.Result{Text: "hola", Model: "lite"}, nil
	}}
	r := New(&fakeClassifier{classification(classify.StrategyDirect)}, nil, gen, nil, NewMetrics(reg))

	r.Route(context.Background(), Request{Query: "Hola", City: "vila"})

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	if !found["plaza_router_queries_total"] {
		t.Error("queries counter not registered")
	}
	if !found["plaza_router_duration_seconds"] {
		t.Error("duration histogram not registered")
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.observe("direct-generation", 0)
	m.fallback()
	m.failure()
}
