package services

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	tunnelsSupervised = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunman_tunnels_supervised",
			Help: "Number of tunnel definitions currently supervised",
		},
	)

	tunnelRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunman_tunnel_restarts_total",
			Help: "Total tunnel relaunches triggered from the monitoring loop",
		},
		[]string{"signature"},
	)

	launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunman_launch_failures_total",
			Help: "Total launches that did not survive startup verification",
		},
		[]string{"signature"},
	)

	healthCheckFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunman_health_check_failures_total",
			Help: "Total failed logical health probes",
		},
		[]string{"signature"},
	)

	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunman_http_requests_total",
			Help: "Total HTTP API requests",
		},
		[]string{"handler"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunman_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	errorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunman_http_request_errors_total",
			Help: "Total HTTP API requests answered with status >= 400",
		},
		[]string{"handler"},
	)

	// Local counters mirror the vectors because the prometheus client offers
	// no cheap way to read them back for the healthz payload.
	totalRequests int64
	totalErrors   int64
)

func init() {
	prometheus.MustRegister(tunnelsSupervised)
	prometheus.MustRegister(tunnelRestarts)
	prometheus.MustRegister(launchFailures)
	prometheus.MustRegister(healthCheckFailures)
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(errorCount)
}

func SetSupervisedTunnels(n int) {
	tunnelsSupervised.Set(float64(n))
}

func IncrementRestart(signature string) {
	tunnelRestarts.WithLabelValues(signature).Inc()
}

func IncrementLaunchFailure(signature string) {
	launchFailures.WithLabelValues(signature).Inc()
}

func IncrementHealthCheckFailure(signature string) {
	healthCheckFailures.WithLabelValues(signature).Inc()
}

func IncrementRequestCount(handler string) {
	requestCount.WithLabelValues(handler).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func RecordRequestDuration(handler string, seconds float64) {
	requestDuration.WithLabelValues(handler).Observe(seconds)
}

func IncrementErrorCount(handler string) {
	errorCount.WithLabelValues(handler).Inc()
	atomic.AddInt64(&totalErrors, 1)
}

func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&totalErrors)
}
