package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks step and tool-call volume for the agent runtime. It is
// built on Prometheus and, like the tracer, is entirely optional: a nil
// *Metrics is valid and every method on it is a no-op, so callers that
// don't want metrics never need a conditional at the call site.
type Metrics struct {
	StepsTotal       *prometheus.CounterVec
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	RunsTerminated   *prometheus.CounterVec
}

// NewMetrics registers and returns a Metrics instance against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for process-wide collection.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrun_steps_total",
			Help: "Total agent loop steps, labeled by the step's model id.",
		}, []string{"mode"}),
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrun_tool_calls_total",
			Help: "Total tool calls dispatched, labeled by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		ToolCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrun_tool_call_duration_seconds",
			Help:    "Tool execution latency in seconds, labeled by tool name.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"tool"}),
		RunsTerminated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrun_runs_terminated_total",
			Help: "Total runs ended, labeled by reason.",
		}, []string{"reason"}),
	}
}

// ObserveStep increments the step counter for mode. Safe to call on a nil
// *Metrics.
func (m *Metrics) ObserveStep(mode string) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(mode).Inc()
}

// ObserveToolCall records one tool call's outcome and duration in seconds.
// Safe to call on a nil *Metrics.
func (m *Metrics) ObserveToolCall(tool, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(seconds)
}

// ObserveRunTerminated increments the run-termination counter for reason
// (e.g. "terminating_tool", "depth_exceeded", "shutdown", "error"). Safe to
// call on a nil *Metrics.
func (m *Metrics) ObserveRunTerminated(reason string) {
	if m == nil {
		return
	}
	m.RunsTerminated.WithLabelValues(reason).Inc()
}
