package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricNamespace = "fota"

var (
	PushJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "push",
			Name:      "jobs_total",
			Help:      "Number of finished push jobs by target type and final state",
		},
		[]string{"target", "state"},
	)
	PushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: "push",
			Name:      "duration_seconds",
			Help:      "Wall time of a push job from start to a terminal state",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"target"},
	)
	PushInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: "push",
			Name:      "in_flight",
			Help:      "Number of push jobs currently transferring",
		},
	)
	FirmwareUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "inventory",
			Name:      "uploads_total",
			Help:      "Number of firmware binaries stored by target type",
		},
		[]string{"target"},
	)
	FirmwareBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "inventory",
			Name:      "upload_bytes_total",
			Help:      "Bytes of firmware written to the storage root",
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "code"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PushJobs,
			PushDuration,
			PushInFlight,
			FirmwareUploads,
			FirmwareBytes,
			HTTPRequests,
			HTTPLatency,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

func ObservePush(target, state string, took time.Duration) {
	PushJobs.WithLabelValues(target, state).Inc()
	PushDuration.WithLabelValues(target).Observe(took.Seconds())
}

func ObserveUpload(target string, size int64) {
	FirmwareUploads.WithLabelValues(target).Inc()
	if size > 0 {
		FirmwareBytes.Add(float64(size))
	}
}

func ObserveRequest(method, route string, code int, took time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	HTTPLatency.WithLabelValues(route).Observe(took.Seconds())
}
