// Package metrics provides Prometheus metrics for the yearjam service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "yearjam"
	subsystem = "game"
)

// Manager holds the service metrics, registered on its own registry so the
// default Go collectors do not leak into scrape output.
type Manager struct {
	registry *prometheus.Registry

	clipsServed      prometheus.Counter
	clipErrors       *prometheus.CounterVec
	scoresSubmitted  prometheus.Counter
	catalogRequests  *prometheus.CounterVec
	catalogDurations prometheus.Histogram
}

// NewManager creates a metrics manager with its own registry.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		clipsServed: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "clips_served_total",
			Help:      "Clips successfully selected and returned.",
		}),
		clipErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "clip_errors_total",
			Help:      "Clip selection failures by kind.",
		}, []string{"kind"}),
		scoresSubmitted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scores_submitted_total",
			Help:      "Score events accepted.",
		}),
		catalogRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "requests_total",
			Help:      "Outbound catalog requests by operation.",
		}, []string{"op"}),
		catalogDurations: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "request_duration_seconds",
			Help:      "Outbound catalog request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ClipServed counts a successful clip selection.
func (m *Manager) ClipServed() { m.clipsServed.Inc() }

// ClipError counts a clip selection failure of the given kind.
func (m *Manager) ClipError(kind string) { m.clipErrors.WithLabelValues(kind).Inc() }

// ScoreSubmitted counts an accepted score event.
func (m *Manager) ScoreSubmitted() { m.scoresSubmitted.Inc() }

// CatalogRequest records one outbound catalog call.
func (m *Manager) CatalogRequest(op string, seconds float64) {
	m.catalogRequests.WithLabelValues(op).Inc()
	m.catalogDurations.Observe(seconds)
}

// Handler returns the scrape endpoint for this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
