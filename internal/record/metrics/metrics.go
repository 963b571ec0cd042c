package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the section engine.
type Metrics struct {
	SectionsSaved       *prometheus.CounterVec
	SectionsSubmitted   *prometheus.CounterVec
	ActionsTransitioned prometheus.Counter
	ProjectionDuration  prometheus.Histogram
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		SectionsSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casefile_sections_saved_total",
			Help: "Section draft saves, by section key",
		}, []string{"section"}),
		SectionsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "casefile_sections_submitted_total",
			Help: "Section submissions, by section key",
		}, []string{"section"}),
		ActionsTransitioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casefile_actions_transitioned_total",
			Help: "Support actions moved to IN_REVIEW by section submissions",
		}),
		ProjectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "casefile_projection_duration_seconds",
			Help:    "Latency of section projections",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casefile_projection_cache_hits_total",
			Help: "Projection cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "casefile_projection_cache_misses_total",
			Help: "Projection cache misses",
		}),
	}
}

// ObserveSave records one section draft save.
func (m *Metrics) ObserveSave(section string) {
	if m == nil {
		return
	}
	m.SectionsSaved.WithLabelValues(section).Inc()
}

// ObserveSubmit records one section submission.
func (m *Metrics) ObserveSubmit(section string) {
	if m == nil {
		return
	}
	m.SectionsSubmitted.WithLabelValues(section).Inc()
}

// ObserveActions records actions moved to review.
func (m *Metrics) ObserveActions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ActionsTransitioned.Add(float64(n))
}

// ObserveProjection records one projection latency sample.
func (m *Metrics) ObserveProjection(seconds float64) {
	if m == nil {
		return
	}
	m.ProjectionDuration.Observe(seconds)
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}
