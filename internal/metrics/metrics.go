// Package metrics provides Prometheus instrumentation for mindtrace.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mindtrace"

// Manager owns a private registry and every mindtrace collector. A disabled
// Manager accepts all calls and records nothing.
type Manager struct {
	registry *prometheus.Registry
	enabled  bool

	observations      prometheus.Counter
	chainRejections   *prometheus.CounterVec
	guardRejections   *prometheus.CounterVec
	suppressed        prometheus.Counter
	plans             *prometheus.CounterVec
	patternDetections *prometheus.CounterVec
	analysisDuration  prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewManager creates a manager with Go runtime and process collectors.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{registry: registry, enabled: true}
	m.initAnalysisMetrics()
	m.initHTTPMetrics()
	return m
}

// NoOpManager returns a manager that records nothing.
func NoOpManager() *Manager {
	return &Manager{enabled: false}
}

// Enabled reports whether metrics are recorded.
func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// Registry exposes the private registry, nil when disabled.
func (m *Manager) Registry() *prometheus.Registry {
	if !m.Enabled() {
		return nil
	}
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if !m.Enabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) initAnalysisMetrics() {
	m.observations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "observations_total",
		Help:      "Observations admitted by chain aggregation",
	})
	m.chainRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chain_rejections_total",
		Help:      "Chains not admitted, by reason",
	}, []string{"reason"})
	m.guardRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_rejections_total",
		Help:      "Rendered texts rejected by the safety guard, by reason",
	}, []string{"reason"})
	m.suppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suppressed_total",
		Help:      "Analyses whose every rendering attempt was rejected",
	})
	m.plans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "plans_total",
		Help:      "Response plans produced, by mode",
	}, []string{"mode"})
	m.patternDetections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pattern_detections_total",
		Help:      "Dominant behavioral signals detected, by signal",
	}, []string{"signal"})
	m.analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Duration of a full session analysis",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	m.registry.MustRegister(
		m.observations,
		m.chainRejections,
		m.guardRejections,
		m.suppressed,
		m.plans,
		m.patternDetections,
		m.analysisDuration,
	)
}

// RecordObservations adds n admitted observations.
func (m *Manager) RecordObservations(n int) {
	if !m.Enabled() {
		return
	}
	m.observations.Add(float64(n))
}

// RecordChainRejection counts one rejected chain.
func (m *Manager) RecordChainRejection(reason string) {
	if !m.Enabled() {
		return
	}
	m.chainRejections.WithLabelValues(reason).Inc()
}

// RecordGuardRejection counts one rejected rendering.
func (m *Manager) RecordGuardRejection(reason string) {
	if !m.Enabled() {
		return
	}
	m.guardRejections.WithLabelValues(reason).Inc()
}

// RecordSuppressed counts one analysis with no deliverable text.
func (m *Manager) RecordSuppressed() {
	if !m.Enabled() {
		return
	}
	m.suppressed.Inc()
}

// RecordPlan counts one plan.
func (m *Manager) RecordPlan(mode string) {
	if !m.Enabled() {
		return
	}
	m.plans.WithLabelValues(mode).Inc()
}

// RecordPatternSignals counts each dominant signal.
func (m *Manager) RecordPatternSignals(signals []string) {
	if !m.Enabled() {
		return
	}
	for _, s := range signals {
		m.patternDetections.WithLabelValues(s).Inc()
	}
}

// ObserveAnalysis records how long an analysis took.
func (m *Manager) ObserveAnalysis(d time.Duration) {
	if !m.Enabled() {
		return
	}
	m.analysisDuration.Observe(d.Seconds())
}
