package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// closure aggregation pipeline and the analysis surface.
type Metrics struct {
	ClosuresFetched prometheus.Counter
	ClosuresMerged  prometheus.Counter
	FetchRequests   *prometheus.CounterVec // labels: outcome={success,upstream_error,network_error}
	FetchDuration   prometheus.Histogram

	AnalysisRequests *prometheus.CounterVec // labels: outcome={success,validation_error,rate_limited,service_error,network_error}
	AnalysisDuration prometheus.Histogram
	ImpactLevels     *prometheus.CounterVec // labels: level={Low,Medium,High,Severe}
	TokensUsed       *prometheus.CounterVec // labels: kind={prompt,candidates,total}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ClosuresFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane_closure",
			Name:      "closures_fetched_total",
			Help:      "Total raw closure records retrieved from the feature service.",
		}),
		ClosuresMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane_closure",
			Name:      "closures_merged_total",
			Help:      "Total duplicate records collapsed during normalization.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lane_closure",
			Name:      "fetch_requests_total",
			Help:      "Feature service queries by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lane_closure",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a complete fetch-and-normalize cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		AnalysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lane_closure",
			Name:      "analysis_requests_total",
			Help:      "Plan analysis requests by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lane_closure",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of one analysis backend call.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		ImpactLevels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lane_closure",
			Name:      "impact_levels_total",
			Help:      "Impact scores returned by the analysis backend, by level.",
		}, []string{"level"}),
		TokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lane_closure",
			Name:      "analysis_tokens_total",
			Help:      "Generative backend token usage by kind.",
		}, []string{"kind"}),
	}

	prometheus.MustRegister(
		m.ClosuresFetched,
		m.ClosuresMerged,
		m.FetchRequests,
		m.FetchDuration,
		m.AnalysisRequests,
		m.AnalysisDuration,
		m.ImpactLevels,
		m.TokensUsed,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ClosuresFetched:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lane_closure", Name: "closures_fetched_total"}),
		ClosuresMerged:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lane_closure", Name: "closures_merged_total"}),
		FetchRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lane_closure", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "lane_closure", Name: "fetch_duration_seconds"}),
		AnalysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lane_closure", Name: "analysis_requests_total"}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "lane_closure", Name: "analysis_duration_seconds"}),
		ImpactLevels:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lane_closure", Name: "impact_levels_total"}, []string{"level"}),
		TokensUsed:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lane_closure", Name: "analysis_tokens_total"}, []string{"kind"}),
	}
}
