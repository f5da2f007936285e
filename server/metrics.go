package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors of the scene server.
type Metrics struct {
	builds       *prometheus.CounterVec
	buildSeconds *prometheus.HistogramVec
	uploads      *prometheus.CounterVec
	rateLimited  prometheus.Counter
	clamped      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquarium",
			Name:      "scene_builds_total",
			Help:      "Scene builds by sprite source and outcome.",
		}, []string{"source", "outcome"}),
		buildSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aquarium",
			Name:      "scene_build_seconds",
			Help:      "Time to compose and serialize a scene.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"format"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquarium",
			Name:      "uploads_total",
			Help:      "Uploaded files by disposition.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aquarium",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limit.",
		}),
		clamped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquarium",
			Name:      "params_clamped_total",
			Help:      "Parameters pulled back into range, by field.",
		}, []string{"field"}),
	}

	reg.MustRegister(m.builds, m.buildSeconds, m.uploads, m.rateLimited, m.clamped)
	return m
}

func (m *Metrics) observeBuild(format, source, outcome string, d time.Duration) {
	m.builds.WithLabelValues(source, outcome).Inc()
	if outcome != "error" {
		m.buildSeconds.WithLabelValues(format).Observe(d.Seconds())
	}
}
