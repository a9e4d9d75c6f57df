package agent

import (
	"context"
	"log/slog"

	"github.com/modecore/agentrun/internal/observability"
	"go.opentelemetry.io/otel/trace"
)

// TraceEmitter opens a trace per run, a root span per initial user prompt,
// and child spans per step and per tool invocation. Every method is
// non-blocking and must never affect control flow on failure; a nil
// *TraceEmitter is valid and every method on it degrades to a no-op span.
// NoopTraceEmitter returns a non-nil emitter that exports nothing.
type TraceEmitter struct {
	tracer   *observability.Tracer
	metrics  *observability.Metrics
	shutdown func(context.Context) error
	logger   *slog.Logger
}

// NewTraceEmitter builds a TraceEmitter from environment configuration, as
// spec'd: the core only reads environment variables to decide whether to
// enable tracing at all.
func NewTraceEmitter(logger *slog.Logger) *TraceEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	tracer, shutdown := observability.NewTracer(observability.FromEnv())
	return &TraceEmitter{
		tracer:   tracer,
		metrics:  observability.NewMetrics(nil),
		shutdown: shutdown,
		logger:   logger,
	}
}

// NoopTraceEmitter returns a TraceEmitter that never contacts a collector
// and never registers Prometheus collectors, suitable for tests.
func NoopTraceEmitter() *TraceEmitter {
	tracer, shutdown := observability.NewTracer(observability.TraceConfig{ServiceName: "agentrun-test"})
	return &TraceEmitter{tracer: tracer, shutdown: shutdown, logger: slog.Default()}
}

// StartRun opens the root span for one run.
func (t *TraceEmitter) StartRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.StartRun(ctx, runID)
}

// StartStep opens a child span for one step and records the step against
// the metrics emitter. Safe on a nil *TraceEmitter. The Agent Loop passes
// the step's model id as mode, since ModeConfiguration carries no mode name.
func (t *TraceEmitter) StartStep(ctx context.Context, iteration int, mode string) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	t.metrics.ObserveStep(mode)
	return t.tracer.StartStep(ctx, iteration, mode)
}

// StartTool opens a child span for one tool invocation.
func (t *TraceEmitter) StartTool(ctx context.Context, name, callID string) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.StartTool(ctx, name, callID)
}

// RecordToolOutcome records a tool call's outcome/duration with the metrics
// emitter. Safe on a nil *TraceEmitter.
func (t *TraceEmitter) RecordToolOutcome(tool, outcome string, seconds float64) {
	if t == nil {
		return
	}
	t.metrics.ObserveToolCall(tool, outcome, seconds)
}

// RecordRunTerminated records the terminal reason for a run.
func (t *TraceEmitter) RecordRunTerminated(reason string) {
	if t == nil {
		return
	}
	t.metrics.ObserveRunTerminated(reason)
}

// EndSpan ends span. A nil span is ignored.
func (t *TraceEmitter) EndSpan(span trace.Span) {
	if span == nil {
		return
	}
	span.End()
}

// Shutdown flushes and closes the underlying exporter, tolerating failure.
func (t *TraceEmitter) Shutdown(ctx context.Context) {
	if t == nil || t.shutdown == nil {
		return
	}
	if err := t.shutdown(ctx); err != nil && t.logger != nil {
		t.logger.Warn("trace emitter shutdown failed", "error", err)
	}
}
