package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"digital.vasic.provision/pkg/task"
)

const namespace = "provision"

// PrometheusMetrics implements PassMetrics on a private
// Prometheus registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	tasks    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	passes   *prometheus.CounterVec
	pending  prometheus.Gauge
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance
// with its collectors registered.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Tasks resolved, by name and final status.",
		}, []string{"task", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time spent resolving a task.",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 30, 120},
		}, []string{"status"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Passes started, by mode.",
		}, []string{"mode"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_tasks",
			Help:      "Tasks of the current pass not yet resolved.",
		}),
	}
	m.registry.MustRegister(m.tasks, m.duration, m.passes, m.pending)
	return m
}

func (m *PrometheusMetrics) RecordTask(name string, status task.Status, duration time.Duration) {
	m.tasks.WithLabelValues(name, string(status)).Inc()
	m.duration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) IncrementPassTotal(mode string) {
	m.passes.WithLabelValues(mode).Inc()
}

func (m *PrometheusMetrics) SetPendingTasks(count int) {
	m.pending.Set(float64(count))
}

// Registry returns the registry holding the collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition
// format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
