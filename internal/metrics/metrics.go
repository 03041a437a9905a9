// Package metrics exposes Prometheus instrumentation for the playout
// controller.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playout controller.
type Metrics struct {
	registry           *prometheus.Registry
	takesTotal         prometheus.Counter
	jobsTotal          *prometheus.CounterVec
	jobErrorsTotal     *prometheus.CounterVec
	jobDuration        prometheus.Histogram
	timelinesPublished prometheus.Counter
	timelineObjects    prometheus.Gauge
	activePlaylists    prometheus.Gauge
}

// New creates and registers Prometheus metrics for the controller.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	takesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conductor_takes_total",
		Help: "Total number of successful takes",
	})
	jobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_playout_jobs_total",
		Help: "Total number of playout jobs executed, by job name",
	}, []string{"job"})
	jobErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_playout_job_errors_total",
		Help: "Total number of failed playout jobs, by job name",
	}, []string{"job"})
	jobDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "conductor_playout_job_duration_seconds",
		Help:    "Playout job execution time",
		Buckets: prometheus.DefBuckets,
	})
	timelinesPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conductor_timelines_published_total",
		Help: "Total number of timeline documents published",
	})
	timelineObjects := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_timeline_objects",
		Help: "Number of objects in the most recently published timeline",
	})
	activePlaylists := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_active_playlists",
		Help: "Number of playlists currently holding an activation",
	})

	registry.MustRegister(
		takesTotal,
		jobsTotal,
		jobErrorsTotal,
		jobDuration,
		timelinesPublished,
		timelineObjects,
		activePlaylists,
	)

	return &Metrics{
		registry:           registry,
		takesTotal:         takesTotal,
		jobsTotal:          jobsTotal,
		jobErrorsTotal:     jobErrorsTotal,
		jobDuration:        jobDuration,
		timelinesPublished: timelinesPublished,
		timelineObjects:    timelineObjects,
		activePlaylists:    activePlaylists,
	}
}

// IncTakes increments the take counter.
func (m *Metrics) IncTakes() {
	m.takesTotal.Inc()
}

// ObserveJob records one finished playout job.
func (m *Metrics) ObserveJob(name string, seconds float64, failed bool) {
	m.jobsTotal.WithLabelValues(name).Inc()
	m.jobDuration.Observe(seconds)
	if failed {
		m.jobErrorsTotal.WithLabelValues(name).Inc()
	}
}

// TimelinePublished records one published timeline and its object count.
func (m *Metrics) TimelinePublished(objects int) {
	m.timelinesPublished.Inc()
	m.timelineObjects.Set(float64(objects))
}

// SetActivePlaylists sets the active playlist gauge.
func (m *Metrics) SetActivePlaylists(n int) {
	m.activePlaylists.Set(float64(n))
}

// Handler returns an HTTP handler serving this registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
