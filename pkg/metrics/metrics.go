// Package metrics exposes Prometheus instrumentation for the aidoc backend.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "aidoc"

var (
	limiterFallbackCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "limiter_fallback_total",
			Help:      "Count of rate-limit decisions served by the local fallback backend because the shared backend was unreachable.",
		},
	)
	admissionDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "admission_denied_total",
			Help:      "Count of submissions denied by the rate limiter, by backend.",
		},
		[]string{"backend"},
	)
	jobOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "jobs_finished_total",
			Help:      "Count of jobs reaching a terminal state, by state.",
		},
		[]string{"state"},
	)
	queueDepthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "dispatch_queue_depth",
			Help:      "Number of job ids waiting in the dispatch queue.",
		},
	)
)

var registerMetrics sync.Once

// Register registers all collectors with the default registry.
func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(
			limiterFallbackCounter,
			admissionDeniedCounter,
			jobOutcomeCounter,
			queueDepthGauge,
		)
	})
}

// RecordLimiterFallback records one decision served by the local backend.
func RecordLimiterFallback() {
	limiterFallbackCounter.Inc()
}

// RecordAdmissionDenied records a denied admission for the given backend.
func RecordAdmissionDenied(backend string) {
	admissionDeniedCounter.WithLabelValues(backend).Inc()
}

// RecordJobOutcome records a job reaching a terminal state.
func RecordJobOutcome(state string) {
	jobOutcomeCounter.WithLabelValues(state).Inc()
}

// SetQueueDepth updates the dispatch queue depth gauge.
func SetQueueDepth(n int) {
	queueDepthGauge.Set(float64(n))
}
