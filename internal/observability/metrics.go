package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the tool.
// Metrics are organized by subsystem: sources, harvest, storage and analysis. All counters
// and histograms are registered via promauto with the default Prometheus registry.
//
// Every Record method is a no-op on a nil *Metrics, so components can run without metrics.
type Metrics struct {
	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to paper source APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// SourceRetries counts retried HTTP requests, labeled by source.
	SourceRetries *prometheus.CounterVec

	// HarvestQueries counts completed monthly queries.
	HarvestQueries prometheus.Counter

	// HarvestQueryRetries counts monthly queries attempted again, labeled by reason.
	HarvestQueryRetries *prometheus.CounterVec

	// HarvestDuration observes the duration of whole harvests in seconds.
	HarvestDuration prometheus.Histogram

	// PMIDsDiscovered counts unique PMIDs found by the monthly queries.
	PMIDsDiscovered prometheus.Counter

	// ArticlesFetched counts articles parsed from efetch responses.
	ArticlesFetched prometheus.Counter

	// ArticlesStored counts articles written to a store, labeled by backend.
	ArticlesStored *prometheus.CounterVec

	// RecordsSkipped counts input articles left out of an analysis, labeled by reason.
	RecordsSkipped *prometheus.CounterVec

	// StudiesAnalyzed counts studies folded into the statistics.
	StudiesAnalyzed prometheus.Counter

	// WordsCounted counts words retained after filtering.
	WordsCounted prometheus.Counter

	// YearsCovered is the number of years of the last analysis.
	YearsCovered prometheus.Gauge

	// AnalysisDuration observes the duration of analysis runs in seconds.
	AnalysisDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to paper sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to paper sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to paper sources in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
		}, []string{"source"}),
		SourceRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Total number of retried requests to paper sources",
		}, []string{"source"}),

		// Harvest
		HarvestQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvest_queries_total",
			Help:      "Total number of monthly queries completed",
		}),
		HarvestQueryRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvest_query_retries_total",
			Help:      "Total number of monthly queries attempted again by reason",
		}, []string{"reason"}),
		HarvestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "harvest_duration_seconds",
			Help:      "Duration of harvests in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		PMIDsDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pmids_discovered_total",
			Help:      "Total number of unique PMIDs discovered",
		}),
		ArticlesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Total number of articles fetched",
		}),

		// Storage
		ArticlesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_stored_total",
			Help:      "Total number of articles written by storage backend",
		}, []string{"backend"}),

		// Analysis
		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Total number of articles skipped before analysis by reason",
		}, []string{"reason"}),
		StudiesAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "studies_analyzed_total",
			Help:      "Total number of studies analyzed",
		}),
		WordsCounted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_counted_total",
			Help:      "Total number of words retained after filtering",
		}),
		YearsCovered: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "years_covered",
			Help:      "Number of publication years covered by the last analysis",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of analysis runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
	}
}

// RecordSourceRequest records a request to a paper source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a paper source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordSourceRetry records a retried request to a source.
func (m *Metrics) RecordSourceRetry(source string) {
	if m == nil {
		return
	}
	m.SourceRetries.WithLabelValues(source).Inc()
}

// RecordHarvestQuery records a completed monthly query and the new PMIDs it found.
func (m *Metrics) RecordHarvestQuery(newPMIDs int) {
	if m == nil {
		return
	}
	m.HarvestQueries.Inc()
	m.PMIDsDiscovered.Add(float64(newPMIDs))
}

// RecordHarvestQueryRetry records a monthly query attempted again.
func (m *Metrics) RecordHarvestQueryRetry(reason string) {
	if m == nil {
		return
	}
	m.HarvestQueryRetries.WithLabelValues(reason).Inc()
}

// RecordArticlesFetched records articles parsed from one fetch.
func (m *Metrics) RecordArticlesFetched(count int) {
	if m == nil {
		return
	}
	m.ArticlesFetched.Add(float64(count))
}

// RecordHarvestCompleted records the duration of a finished harvest.
func (m *Metrics) RecordHarvestCompleted(durationSeconds float64) {
	if m == nil {
		return
	}
	m.HarvestDuration.Observe(durationSeconds)
}

// RecordArticlesStored records articles written to a storage backend.
func (m *Metrics) RecordArticlesStored(backend string, count int) {
	if m == nil {
		return
	}
	m.ArticlesStored.WithLabelValues(backend).Add(float64(count))
}

// RecordRecordsSkipped records articles skipped before analysis.
func (m *Metrics) RecordRecordsSkipped(reason string, count int) {
	if m == nil {
		return
	}
	m.RecordsSkipped.WithLabelValues(reason).Add(float64(count))
}

// RecordAnalysis records the outcome of an analysis run.
func (m *Metrics) RecordAnalysis(studies, words, years int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.StudiesAnalyzed.Add(float64(studies))
	m.WordsCounted.Add(float64(words))
	m.YearsCovered.Set(float64(years))
	m.AnalysisDuration.Observe(durationSeconds)
}

// WriteTextfile writes every metric of the default registry to path in the text
// exposition format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
