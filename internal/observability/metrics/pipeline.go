package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics tracks the ask pipeline: per-stage outcomes, index cache
// behavior and which answer branch served the request.
type PipelineMetrics struct {
	registry *prometheus.Registry

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	indexRebuilds prometheus.Counter
	indexReuses   prometheus.Counter
	answerBranch  *prometheus.CounterVec
	chunksServed  prometheus.Histogram
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepilot",
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Pipeline stage executions by stage and status.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradepilot",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"stage"},
	)
	indexRebuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradepilot",
		Subsystem: "index",
		Name:      "rebuild_total",
		Help:      "Full index rebuilds.",
		ConstLabels: prometheus.Labels{
			"service": service,
		},
	})
	indexReuses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradepilot",
		Subsystem: "index",
		Name:      "cache_hit_total",
		Help:      "Refresh requests satisfied by the stored index.",
		ConstLabels: prometheus.Labels{
			"service": service,
		},
	})
	answerBranch := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepilot",
			Subsystem: "pipeline",
			Name:      "answer_branch_total",
			Help:      "Answers by branch: retrieval, fallback, empty, insufficient.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"branch"},
	)
	chunksServed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tradepilot",
		Subsystem: "pipeline",
		Name:      "retrieved_chunks",
		Help:      "Chunks handed to the synthesizer per request.",
		Buckets:   []float64{0, 1, 2, 4, 6, 10, 20},
		ConstLabels: prometheus.Labels{
			"service": service,
		},
	})

	registry.MustRegister(stageTotal, stageDuration, indexRebuilds, indexReuses, answerBranch, chunksServed)

	return &PipelineMetrics{
		registry:      registry,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		indexRebuilds: indexRebuilds,
		indexReuses:   indexReuses,
		answerBranch:  answerBranch,
		chunksServed:  chunksServed,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) ObserveStage(stage, status string, duration time.Duration) {
	m.stageTotal.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *PipelineMetrics) IndexRebuilt() {
	m.indexRebuilds.Inc()
}

func (m *PipelineMetrics) IndexReused() {
	m.indexReuses.Inc()
}

func (m *PipelineMetrics) ObserveAnswer(branch string, chunks int) {
	m.answerBranch.WithLabelValues(branch).Inc()
	m.chunksServed.Observe(float64(chunks))
}
