package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunCount counts comparison runs by final status
	RunCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dupcheck_runs_total",
			Help: "Total number of corpus comparison runs",
		},
		[]string{"status"},
	)

	// RunDuration measures the wall time of a whole run
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dupcheck_run_duration_seconds",
			Help:    "Corpus comparison run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	// PairsCompared counts scored file pairs
	PairsCompared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dupcheck_pairs_compared_total",
			Help: "Total number of file pairs scored",
		},
	)

	// FilesNormalized counts files read and normalized
	FilesNormalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dupcheck_files_normalized_total",
			Help: "Total number of files read and normalized",
		},
	)

	// RequestCount counts HTTP requests
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dupcheck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dupcheck_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)
)

var initOnce sync.Once

// InitPrometheus registers the collectors with the default registry. Safe to
// call more than once.
func InitPrometheus() {
	initOnce.Do(func() {
		prometheus.MustRegister(RunCount)
		prometheus.MustRegister(RunDuration)
		prometheus.MustRegister(PairsCompared)
		prometheus.MustRegister(FilesNormalized)
		prometheus.MustRegister(RequestCount)
		prometheus.MustRegister(RequestDuration)
	})
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
