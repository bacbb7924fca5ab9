// Package metrics provides Prometheus metrics for the MediaWiki exporter.
// It tracks API calls, page outcomes and the combined corpus size of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "mediawiki_export"
)

// API call outcomes used as the status label
const (
	StatusOK             = "ok"
	StatusParseError     = "parse_error"
	StatusTransportError = "transport_error"
	StatusUnexpected     = "unexpected_shape"
)

var (
	// APIRequestsTotal counts MediaWiki API requests by action and outcome
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_requests_total",
		Help:      "Total MediaWiki API requests by action and status",
	}, []string{"action", "status"})

	// APIRequestDuration measures API latency
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "api_request_duration_seconds",
		Help:      "MediaWiki API request latency by action",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"action"})

	// ParseErrors counts responses that were not valid JSON
	ParseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "parse_errors_total",
		Help:      "API responses that could not be decoded as JSON",
	}, []string{"action"})

	// PagesTotal counts processed titles by classification
	PagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "pages_total",
		Help:      "Titles handled by the exporter by kind (content, redirect, unavailable)",
	}, []string{"kind"})

	// ContentSize tracks the size of saved wikitext
	ContentSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "content_size_bytes",
		Help:      "Saved page content size distribution in bytes",
		Buckets:   []float64{100, 1000, 10000, 50000, 100000, 250000, 500000, 1000000},
	})

	// CombinedWords holds the word count of the last combined corpus
	CombinedWords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "combined_words",
		Help:      "Word count of the combined corpus file",
	})

	// RunDuration holds the wall time of the last export run
	RunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the last export run",
	})
)

// RecordAPICall records a MediaWiki API call
func RecordAPICall(action string, duration float64, status string) {
	APIRequestsTotal.WithLabelValues(action, status).Inc()
	APIRequestDuration.WithLabelValues(action).Observe(duration)
	if status == StatusParseError {
		ParseErrors.WithLabelValues(action).Inc()
	}
}

// RecordPage records one handled title. Size is only observed for saved content.
func RecordPage(kind string, size int, saved bool) {
	PagesTotal.WithLabelValues(kind).Inc()
	if saved {
		ContentSize.Observe(float64(size))
	}
}

// SetCombinedWords updates the combined corpus word count
func SetCombinedWords(words int) {
	CombinedWords.Set(float64(words))
}

// SetRunDuration updates the run duration gauge
func SetRunDuration(seconds float64) {
	RunDuration.Set(seconds)
}

// WriteTextfile writes all registered metrics to path in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
