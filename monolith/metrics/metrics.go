/*
	metrics package defines the prometheus collectors shared by the
	search front-end and the PageRank service.
*/

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sherlook"

// Search outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeBadInput = "bad_input"
	OutcomeError    = "error"
)

// Metrics holds the collectors of the application.
type Metrics struct {
	SearchQueries      *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResults      prometheus.Histogram
	PageRankPasses     *prometheus.CounterVec
	PageRankDuration   prometheus.Histogram
	PageRankIterations prometheus.Gauge
	PageRankVertices   prometheus.Gauge
	CrawlEvents        *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. When reg also
// implements prometheus.Gatherer, Handler serves its contents.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SearchQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_queries_total",
				Help:      "Total search queries by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Search latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"mode"},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results_count",
				Help:      "Number of ranked documents per search query.",
				Buckets:   []float64{0, 1, 10, 100, 1000, 10000},
			},
		),
		PageRankPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pagerank_passes_total",
				Help:      "Total PageRank passes by outcome.",
			},
			[]string{"outcome"},
		),
		PageRankDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pagerank_pass_duration_seconds",
				Help:      "Duration of a full PageRank pass in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		PageRankIterations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pagerank_last_iterations",
				Help:      "Iterations used by the last PageRank pass.",
			},
		),
		PageRankVertices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pagerank_last_vertices",
				Help:      "Number of documents ranked by the last PageRank pass.",
			},
		),
		CrawlEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "crawl_events_total",
				Help:      "Crawl events consumed by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.SearchQueries,
		m.SearchLatency,
		m.SearchResults,
		m.PageRankPasses,
		m.PageRankDuration,
		m.PageRankIterations,
		m.PageRankVertices,
		m.CrawlEvents,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	return m, nil
}

// ObserveSearch records a served search query.
func (m *Metrics) ObserveSearch(mode, outcome string, results int, took time.Duration) {
	m.SearchQueries.WithLabelValues(mode, outcome).Inc()
	m.SearchLatency.WithLabelValues(mode).Observe(took.Seconds())

	if outcome == OutcomeOK || outcome == OutcomeEmpty {
		m.SearchResults.Observe(float64(results))
	}
}

// ObservePageRankPass records a finished PageRank pass.
func (m *Metrics) ObservePageRankPass(vertices, iterations int, converged bool, took time.Duration) {
	outcome := "converged"
	if !converged {
		outcome = "not_converged"
	}

	m.PageRankPasses.WithLabelValues(outcome).Inc()
	m.PageRankDuration.Observe(took.Seconds())
	m.PageRankIterations.Set(float64(iterations))
	m.PageRankVertices.Set(float64(vertices))
}

// ObservePageRankFailure records a PageRank pass that returned an error.
func (m *Metrics) ObservePageRankFailure() {
	m.PageRankPasses.WithLabelValues(OutcomeError).Inc()
}

// ObserveCrawlEvent records a consumed crawl event.
func (m *Metrics) ObserveCrawlEvent(eventType, outcome string) {
	m.CrawlEvents.WithLabelValues(eventType, outcome).Inc()
}

// Handler returns the prometheus scrape handler for the registry the
// collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
