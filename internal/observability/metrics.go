package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	PagesProcessed  prometheus.Counter
	PageErrors      prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Extraction and record-building metrics.
	CandidateLines prometheus.Counter
	RecordsBuilt   *prometheus.CounterVec // labels: status={ok,check species,check location,check species & location,format}

	// Normalization metrics.
	MatchResults  *prometheus.CounterVec // labels: vocabulary={species,locations}, status={exact,fuzzy,unmatched}
	UnknownTokens *prometheus.CounterVec // labels: vocabulary={species,locations}

	// Per-page processing metrics.
	CandidatesPerPage      prometheus.Histogram
	PageProcessingDuration prometheus.Histogram

	// Harvester metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}
	FetchDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "pages_processed_total",
			Help:      "Total archive pages run through the pipeline.",
		}),
		PageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "page_errors_total",
			Help:      "Total pages that failed to process.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sightings_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		CandidateLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "candidate_lines_total",
			Help:      "Total candidate sighting lines extracted from page text.",
		}),
		RecordsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "records_built_total",
			Help:      "Sighting records built, by review status.",
		}, []string{"status"}),
		MatchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "match_results_total",
			Help:      "Vocabulary match outcomes by vocabulary and status.",
		}, []string{"vocabulary", "status"}),
		UnknownTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "unknown_tokens_total",
			Help:      "Tokens that matched nothing in a vocabulary.",
		}, []string{"vocabulary"}),
		CandidatesPerPage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sightings_etl",
			Name:      "candidates_per_page",
			Help:      "Number of candidate lines extracted per page.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200, 400},
		}),
		PageProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sightings_etl",
			Name:      "page_processing_duration_seconds",
			Help:      "Duration of a complete page extract-parse-build cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "fetch_requests_total",
			Help:      "Archive page fetches by outcome.",
		}, []string{"outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sightings_etl",
			Name:      "fetch_cache_total",
			Help:      "Page cache lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sightings_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Archive page request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	prometheus.MustRegister(
		m.PagesProcessed,
		m.PageErrors,
		m.PipelineRunning,
		m.CandidateLines,
		m.RecordsBuilt,
		m.MatchResults,
		m.UnknownTokens,
		m.CandidatesPerPage,
		m.PageProcessingDuration,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PagesProcessed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "pages_processed_total"}),
		PageErrors:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "page_errors_total"}),
		PipelineRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sightings_etl", Name: "pipeline_running"}),
		CandidateLines:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "candidate_lines_total"}),
		RecordsBuilt:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "records_built_total"}, []string{"status"}),
		MatchResults:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "match_results_total"}, []string{"vocabulary", "status"}),
		UnknownTokens:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "unknown_tokens_total"}, []string{"vocabulary"}),
		CandidatesPerPage:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sightings_etl", Name: "candidates_per_page"}),
		PageProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sightings_etl", Name: "page_processing_duration_seconds"}),
		FetchRequests:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchCache:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sightings_etl", Name: "fetch_cache_total"}, []string{"result"}),
		FetchDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sightings_etl", Name: "fetch_duration_seconds"}),
	}
}
