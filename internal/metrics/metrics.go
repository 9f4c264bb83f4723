package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "business_visa"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs by outcome.",
		},
		[]string{"job", "outcome"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"job"},
	)

	jobItemFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "item_failures_total",
			Help:      "Items that failed inside a job run.",
		},
		[]string{"job"},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Outbound calls to external services.",
		},
		[]string{"service", "operation", "success"},
	)

	visaTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visa",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions applied to applicants and visas.",
		},
		[]string{"transition"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "pending_messages",
			Help:      "Mint messages waiting in the queue.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		jobRuns,
		jobDuration,
		jobItemFailures,
		gatewayCalls,
		visaTransitions,
		queueDepth,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordJobRun records one job tick. outcome is "ok", "error", "panic" or "skipped".
func RecordJobRun(job, outcome string, duration time.Duration) {
	jobRuns.WithLabelValues(job, outcome).Inc()
	if outcome != "skipped" {
		jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	}
}

func RecordJobItemFailure(job string) {
	jobItemFailures.WithLabelValues(job).Inc()
}

func RecordGatewayCall(service, operation string, err error) {
	gatewayCalls.WithLabelValues(service, operation, strconv.FormatBool(err == nil)).Inc()
}

func RecordTransition(transition string) {
	visaTransitions.WithLabelValues(transition).Inc()
}

func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}
