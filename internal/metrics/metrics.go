// Package metrics exposes Prometheus counters for transactions, lifecycle
// events and tool calls.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/rolecall/internal/domain/event"
)

const namespace = "rolecall"

// Metrics holds the collectors registered on its own registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	txnAttempts *prometheus.CounterVec
	events      *prometheus.CounterVec
	toolCalls   *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		txnAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txn",
			Name:      "attempts_total",
			Help:      "Transaction attempts by operation and outcome.",
		}, []string{"op", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Lifecycle events dispatched after commit.",
		}, []string{"type"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool calls by method and result.",
		}, []string{"method", "result"}),
	}
	m.registry.MustRegister(
		m.txnAttempts,
		m.events,
		m.toolCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAttempt implements txn.Observer.
func (m *Metrics) ObserveAttempt(op, outcome string) {
	if m == nil {
		return
	}
	m.txnAttempts.WithLabelValues(op, outcome).Inc()
}

// ObserveToolCall counts one tool call. result is "ok" or an error code.
func (m *Metrics) ObserveToolCall(method, result string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(method, result).Inc()
}

// Dispatch implements event.Dispatcher by counting events.
func (m *Metrics) Dispatch(_ context.Context, evt event.Event) error {
	if m == nil {
		return nil
	}
	m.events.WithLabelValues(string(evt.Type)).Inc()
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
