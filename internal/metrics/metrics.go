// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the relay updates.
type Metrics struct {
	registry *prometheus.Registry

	messagesTotal   *prometheus.CounterVec
	messageDuration *prometheus.HistogramVec
	surfaceTotal    *prometheus.CounterVec
	storageWrites   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_relay_messages_total",
			Help: "Relay messages handled, by type and outcome",
		}, []string{"type", "outcome"}),
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recall_relay_message_duration_seconds",
			Help:    "Time spent handling a relay message",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		surfaceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_surface_actions_total",
			Help: "Browser surface actions attempted, by action and result",
		}, []string{"action", "result"}), // result: ok|failed
		storageWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_storage_writes_total",
			Help: "Writes to well-known storage keys",
		}, []string{"key"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_http_requests_total",
			Help: "HTTP requests served, by route and status",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.messagesTotal, m.messageDuration, m.surfaceTotal, m.storageWrites, m.httpRequests)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMessage records one handled relay message.
func (m *Metrics) ObserveMessage(msgType, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(msgType, outcome).Inc()
	m.messageDuration.WithLabelValues(msgType).Observe(took.Seconds())
}

// SurfaceAction records a surface command attempt.
func (m *Metrics) SurfaceAction(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.surfaceTotal.WithLabelValues(action, result).Inc()
}

// StorageWrite records a write to key.
func (m *Metrics) StorageWrite(key string) {
	if m == nil {
		return
	}
	m.storageWrites.WithLabelValues(key).Inc()
}

// HTTPRequest records a served request.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
}
