package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts routing decisions. A nil *Metrics is valid and records
// nothing, which keeps tests free of registries.
type Metrics struct {
	queries   *prometheus.CounterVec
	fallbacks prometheus.Counter
	failures  prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewMetrics registers the router metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plaza_router_queries_total",
			Help: "Queries processed, by execution strategy.",
		}, []string{"strategy"}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "plaza_router_fallbacks_total",
			Help: "Queries where knowledge retrieval fell back to live search.",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "plaza_router_failures_total",
			Help: "Queries that ended in the error state.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plaza_router_duration_seconds",
			Help:    "End-to-end query processing time, by execution strategy.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"strategy"}),
	}
}

func (m *Metrics) observe(strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(strategy).Inc()
	m.duration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) failure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
