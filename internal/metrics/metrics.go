// Package metrics exposes Prometheus instrumentation for the agent.
// A nil *Metrics is valid everywhere and records nothing, so components
// never need to guard their instrumentation calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors.
type Metrics struct {
	registry *prometheus.Registry

	dispatchRequests *prometheus.CounterVec
	toolInvocations  *prometheus.CounterVec
	modelRetries     prometheus.Counter
	schedulerFires   *prometheus.CounterVec
	activeTasks      prometheus.Gauge
}

// New creates a registry with the agent's collectors plus the standard Go
// runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		dispatchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gentai_dispatch_requests_total",
			Help: "User requests dispatched, by routed tier.",
		}, []string{"tier"}),
		toolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gentai_tool_invocations_total",
			Help: "Tool executions, by tool name and outcome.",
		}, []string{"tool", "status"}),
		modelRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "gentai_model_retries_total",
			Help: "Model calls retried after a transient failure.",
		}),
		schedulerFires: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gentai_scheduler_fires_total",
			Help: "Scheduled task fires, by outcome.",
		}, []string{"result"}),
		activeTasks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gentai_scheduler_active_tasks",
			Help: "Tasks currently registered with the scheduler.",
		}),
	}
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncDispatch counts one routed user request.
func (m *Metrics) IncDispatch(tier string) {
	if m == nil {
		return
	}
	m.dispatchRequests.WithLabelValues(tier).Inc()
}

// IncToolInvocation counts one tool execution.
func (m *Metrics) IncToolInvocation(tool, status string) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(tool, status).Inc()
}

// IncModelRetry counts one retried model call.
func (m *Metrics) IncModelRetry() {
	if m == nil {
		return
	}
	m.modelRetries.Inc()
}

// IncSchedulerFire counts one scheduled task fire.
func (m *Metrics) IncSchedulerFire(result string) {
	if m == nil {
		return
	}
	m.schedulerFires.WithLabelValues(result).Inc()
}

// SetActiveTasks records the current scheduler population.
func (m *Metrics) SetActiveTasks(n int) {
	if m == nil {
		return
	}
	m.activeTasks.Set(float64(n))
}
