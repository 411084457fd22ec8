package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// WorkerMetrics covers the pipeline worker: runs by outcome, per-stage
// durations, extraction branches by modality, and question generation.
type WorkerMetrics struct {
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	runsInFlight      prometheus.Gauge
	extractionsTotal  *prometheus.CounterVec
	extractionsActive prometheus.Gauge
	questionsTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studypath",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed processing runs by terminal stage.",
		},
		[]string{"service", "stage"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studypath",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Full run duration in seconds by terminal stage.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "stage"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studypath",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "studypath",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studypath",
			Subsystem: "pipeline",
			Name:      "extractions_total",
			Help:      "Extraction branch completions by modality and status.",
		},
		[]string{"service", "modality", "status"},
	)
	extractionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "studypath",
			Subsystem: "pipeline",
			Name:      "extractions_in_flight",
			Help:      "Extraction branches currently running.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	questionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studypath",
			Subsystem: "pipeline",
			Name:      "questions_total",
			Help:      "Question generation outcomes: generated, duplicate, failed.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(runsTotal, runDuration, stageDuration, runsInFlight, extractionsTotal, extractionsActive, questionsTotal)

	return &WorkerMetrics{
		registry:          registry,
		runsTotal:         runsTotal,
		runDuration:       runDuration,
		stageDuration:     stageDuration,
		runsInFlight:      runsInFlight,
		extractionsTotal:  extractionsTotal,
		extractionsActive: extractionsActive,
		questionsTotal:    questionsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *WorkerMetrics) FinishRun(service string, stage domain.RunStage, duration time.Duration) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(service, string(stage)).Inc()
	m.runDuration.WithLabelValues(service, string(stage)).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveStage(service string, stage domain.RunStage, duration time.Duration) {
	m.stageDuration.WithLabelValues(service, string(stage)).Observe(duration.Seconds())
}

func (m *WorkerMetrics) StartExtraction() {
	m.extractionsActive.Inc()
}

func (m *WorkerMetrics) FinishExtraction(service string, modality domain.Modality, err error) {
	m.extractionsActive.Dec()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.extractionsTotal.WithLabelValues(service, string(modality), status).Inc()
}

func (m *WorkerMetrics) RecordQuestion(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.questionsTotal.WithLabelValues(service, status).Inc()
}
