package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIMetrics covers the request surface and the ask pipeline of the api
// service. Degradation shows up here as counters, never as request
// failures.
type APIMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal           *prometheus.CounterVec
	askDuration        *prometheus.HistogramVec
	askRetrievedChunks *prometheus.HistogramVec
	degradedTotal      *prometheus.CounterVec
	noGroundingTotal   *prometheus.CounterVec
	indexMode          *prometheus.GaugeVec
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streetlaw",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streetlaw",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "streetlaw",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streetlaw",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total completed ask requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streetlaw",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	askRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streetlaw",
			Subsystem: "ask",
			Name:      "reranked_chunks",
			Help:      "Distribution of reranked chunks per answered request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streetlaw",
			Subsystem: "ask",
			Name:      "degraded_translation_total",
			Help:      "Total ask requests answered with untranslated queries.",
		},
		[]string{"service"},
	)
	noGroundingTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streetlaw",
			Subsystem: "ask",
			Name:      "no_grounding_total",
			Help:      "Total ask requests with no sufficiently relevant law.",
		},
		[]string{"service"},
	)
	indexMode := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "streetlaw",
			Subsystem: "index",
			Name:      "mode",
			Help:      "Active vector index mode (1 for the selected mode).",
		},
		[]string{"service", "mode"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askDuration,
		askRetrievedChunks,
		degradedTotal,
		noGroundingTotal,
		indexMode,
	)

	return &APIMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		askTotal:           askTotal,
		askDuration:        askDuration,
		askRetrievedChunks: askRetrievedChunks,
		degradedTotal:      degradedTotal,
		noGroundingTotal:   noGroundingTotal,
		indexMode:          indexMode,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/interactions/"):
		return "/v1/interactions/{interaction_id}"
	default:
		return path
	}
}

// RecordAsk observes one completed ask request. outcome is one of
// "answered", "no_grounding", "error".
func (m *APIMetrics) RecordAsk(service, outcome string, rerankedChunks int, degraded bool, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.askTotal.WithLabelValues(service, outcome).Inc()
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.askRetrievedChunks.WithLabelValues(service).Observe(float64(rerankedChunks))

	if degraded {
		m.degradedTotal.WithLabelValues(service).Inc()
	}
	if outcome == "no_grounding" {
		m.noGroundingTotal.WithLabelValues(service).Inc()
	}
}

// SetIndexMode publishes the mode picked by the startup probe.
func (m *APIMetrics) SetIndexMode(service, mode string) {
	for _, known := range []string{"persistent", "ephemeral"} {
		value := 0.0
		if known == mode {
			value = 1.0
		}
		m.indexMode.WithLabelValues(service, known).Set(value)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
