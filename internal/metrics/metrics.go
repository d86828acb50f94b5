// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instrumentation for the assessment
// pipeline. Everything registers on a private registry, never the global
// default. Record methods are nil-safe so instrumentation stays optional
// for library callers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	assessmentsTotal   *prometheus.CounterVec
	assessmentDuration prometheus.Histogram
	retrievalPages     prometheus.Counter
	publicationsFound  prometheus.Counter
	encoderFallbacks   prometheus.Counter
}

// New builds a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	assessmentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "pipeline",
			Name:      "assessments_total",
			Help:      "Completed assessments by verdict.",
		},
		[]string{"verdict"},
	)
	assessmentDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "novelty",
			Subsystem: "pipeline",
			Name:      "assessment_duration_seconds",
			Help:      "End-to-end assessment duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
	retrievalPages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "retrieval",
			Name:      "pages_fetched_total",
			Help:      "Search result pages fetched from the publication source.",
		},
	)
	publicationsFound := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "retrieval",
			Name:      "publications_total",
			Help:      "Unique publications retrieved across all queries.",
		},
	)
	encoderFallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "encoder",
			Name:      "model_fallbacks_total",
			Help:      "Times the primary embedding model failed to load and the fallback was used.",
		},
	)

	registry.MustRegister(assessmentsTotal, assessmentDuration, retrievalPages, publicationsFound, encoderFallbacks)

	return &Metrics{
		registry:           registry,
		assessmentsTotal:   assessmentsTotal,
		assessmentDuration: assessmentDuration,
		retrievalPages:     retrievalPages,
		publicationsFound:  publicationsFound,
		encoderFallbacks:   encoderFallbacks,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAssessment counts a completed assessment and its duration.
func (m *Metrics) RecordAssessment(verdict string, duration time.Duration) {
	if m == nil {
		return
	}
	m.assessmentsTotal.WithLabelValues(verdict).Inc()
	m.assessmentDuration.Observe(duration.Seconds())
}

// RecordRetrievalPage counts one fetched search results page.
func (m *Metrics) RecordRetrievalPage() {
	if m == nil {
		return
	}
	m.retrievalPages.Inc()
}

// RecordPublications counts unique publications retrieved in a run.
func (m *Metrics) RecordPublications(n int) {
	if m == nil {
		return
	}
	m.publicationsFound.Add(float64(n))
}

// RecordEncoderFallback counts a primary embedding model failure.
func (m *Metrics) RecordEncoderFallback() {
	if m == nil {
		return
	}
	m.encoderFallbacks.Inc()
}
