package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JudgeWorkerMetrics covers the asynchronous judging pipeline.
type JudgeWorkerMetrics struct {
	registry *prometheus.Registry

	judgmentTotal    *prometheus.CounterVec
	judgmentDuration *prometheus.HistogramVec
	judgmentInFlight prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	scoreHistogram   *prometheus.HistogramVec
}

func NewJudgeWorkerMetrics(service string) *JudgeWorkerMetrics {
	registry := prometheus.NewRegistry()

	judgmentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streetlaw",
			Subsystem: "judge",
			Name:      "judgments_total",
			Help:      "Total judged interactions by status.",
		},
		[]string{"service", "status"},
	)
	judgmentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streetlaw",
			Subsystem: "judge",
			Name:      "judgment_duration_seconds",
			Help:      "Judging duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	judgmentInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "streetlaw",
			Subsystem: "judge",
			Name:      "judgments_in_flight",
			Help:      "Number of in-flight judging tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streetlaw",
			Subsystem: "judge",
			Name:      "queue_lag_seconds",
			Help:      "Delay between interaction creation and judging start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	scoreHistogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streetlaw",
			Subsystem: "judge",
			Name:      "score",
			Help:      "Distribution of grounding scores for scored interactions.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)

	registry.MustRegister(judgmentTotal, judgmentDuration, judgmentInFlight, queueLag, scoreHistogram)

	return &JudgeWorkerMetrics{
		registry:         registry,
		judgmentTotal:    judgmentTotal,
		judgmentDuration: judgmentDuration,
		judgmentInFlight: judgmentInFlight,
		queueLag:         queueLag,
		scoreHistogram:   scoreHistogram,
	}
}

func (m *JudgeWorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *JudgeWorkerMetrics) StartJudgment() {
	m.judgmentInFlight.Inc()
}

func (m *JudgeWorkerMetrics) FinishJudgment(service, status string, duration time.Duration) {
	m.judgmentInFlight.Dec()
	if status == "" {
		status = "unknown"
	}
	m.judgmentTotal.WithLabelValues(service, status).Inc()
	m.judgmentDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *JudgeWorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *JudgeWorkerMetrics) ObserveScore(service string, score float64) {
	m.scoreHistogram.WithLabelValues(service).Observe(score)
}
