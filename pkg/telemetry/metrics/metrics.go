// Package metrics exposes Prometheus collectors for grading runs.
//
// A one-shot platform run gathers the registry and logs a summary at
// exit; watch mode serves the standard /metrics endpoint instead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the harness.
type Metrics struct {
	registry *prometheus.Registry

	// Rate limit decisions, labelled allowed|denied.
	evaluations *prometheus.CounterVec

	// Replays of prior results, labelled ok|failed.
	rehydrations *prometheus.CounterVec

	// Checks executed, labelled by status (passed, failed).
	testsRun *prometheus.CounterVec

	// End-to-end grading duration.
	runDuration prometheus.Histogram
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradekeeper_rate_limit_evaluations_total",
				Help: "Total number of rate limit evaluations by decision",
			},
			[]string{"decision"},
		),

		rehydrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradekeeper_rehydrations_total",
				Help: "Total number of prior-result replays by outcome",
			},
			[]string{"outcome"},
		),

		testsRun: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradekeeper_tests_run_total",
				Help: "Total number of checks executed by status",
			},
			[]string{"status"},
		),

		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gradekeeper_run_duration_seconds",
				Help:    "End-to-end grading run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
	}
}

// Registry returns the backing registry for serving or gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordEvaluation records a rate limit decision.
func (m *Metrics) RecordEvaluation(allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.evaluations.WithLabelValues(decision).Inc()
}

// RecordRehydration records a prior-result replay attempt.
func (m *Metrics) RecordRehydration(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	m.rehydrations.WithLabelValues(outcome).Inc()
}

// RecordTest records one executed check.
func (m *Metrics) RecordTest(passed bool) {
	status := "failed"
	if passed {
		status = "passed"
	}
	m.testsRun.WithLabelValues(status).Inc()
}

// ObserveRunDuration records the end-to-end run duration.
func (m *Metrics) ObserveRunDuration(seconds float64) {
	m.runDuration.Observe(seconds)
}
