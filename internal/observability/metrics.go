package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each instance
// owns its registry so several can coexist in one process.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	ChatRequests     *prometheus.CounterVec
	ChatLatency      prometheus.Histogram
	NodeDuration     *prometheus.HistogramVec
	SearchOutcomes   *prometheus.CounterVec
	MemoryMigrations *prometheus.CounterVec
	MemorySummaries  prometheus.Counter
	EventsConsumed   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		namespace: namespace,
		ChatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat turns by route taken and status.",
		}, []string{"route", "status"}),
		ChatLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_latency_seconds",
			Help:      "End-to-end chat turn latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		NodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_node_duration_seconds",
			Help:      "Time spent in each orchestration node.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"node"}),
		SearchOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_outcomes_total",
			Help:      "Document store searches by corpus and outcome.",
		}, []string{"corpus", "outcome"}),
		MemoryMigrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_migrations_total",
			Help:      "Short-term to long-term migrations by summary mode.",
		}, []string{"mode"}),
		MemorySummaries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_summaries_total",
			Help:      "Conversation summaries saved after a turn.",
		}),
		EventsConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Domain events handled by the in-process consumer.",
		}, []string{"event"}),
	}
}

// ObserveNode satisfies the executor's node observer.
func (m *Metrics) ObserveNode(node string, d time.Duration) {
	m.NodeDuration.WithLabelValues(node).Observe(d.Seconds())
}

func (m *Metrics) ObserveSearch(corpus, outcome string) {
	m.SearchOutcomes.WithLabelValues(corpus, outcome).Inc()
}

// WatchEmbeddingCache exposes the embedding cache size, read at scrape time.
func (m *Metrics) WatchEmbeddingCache(size func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "embedding_cache_entries",
		Help:      "Number of cached query embeddings.",
	}, func() float64 { return float64(size()) }))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
