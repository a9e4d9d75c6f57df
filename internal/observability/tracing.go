// Package observability provides the runtime's optional tracing and metrics
// emission. Both are non-blocking and tolerate failure silently: a
// misconfigured or unreachable collector never affects agent control flow.
package observability

import (
	"context"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceConfig configures the optional OTLP exporter. FromEnv reads it from
// the process environment the way the runtime's trace emitter is specified
// to: the core only reads environment variables to decide whether tracing
// is enabled at all.
type TraceConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// FromEnv builds a TraceConfig from OTEL_EXPORTER_OTLP_ENDPOINT,
// OTEL_SERVICE_NAME, and OTEL_EXPORTER_OTLP_INSECURE. Endpoint empty means
// tracing is disabled.
func FromEnv() TraceConfig {
	cfg := TraceConfig{
		ServiceName: os.Getenv("OTEL_SERVICE_NAME"),
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentrun"
	}
	if v, err := strconv.ParseBool(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); err == nil {
		cfg.Insecure = v
	}
	return cfg
}

// Tracer wraps an OpenTelemetry tracer. When no endpoint is configured, it
// falls back to a no-op tracer rather than failing construction.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer from cfg. If cfg.Endpoint is empty or the
// exporter cannot be constructed, a no-op tracer is returned along with a
// shutdown function that is always safe to call.
func NewTracer(cfg TraceConfig) (*Tracer, func(context.Context) error) {
	if cfg.Endpoint == "" {
		return &Tracer{tracer: otel.Tracer(cfg.ServiceName)}, noopShutdown
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return &Tracer{tracer: otel.Tracer(cfg.ServiceName)}, noopShutdown
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}, provider.Shutdown
}

func noopShutdown(context.Context) error { return nil }

// StartRun opens a root span for one run (one initial user prompt), keyed
// by runID, and returns the derived context plus the span handle.
func (t *Tracer) StartRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "agent.run", trace.WithAttributes(attribute.String("run.id", runID)))
}

// StartStep opens a child span for one assistant-response-plus-tool-calls
// pair (or the tool-less response that ends a run) within an open run span.
func (t *Tracer) StartStep(ctx context.Context, iteration int, mode string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "agent.step", trace.WithAttributes(
		attribute.Int("step.iteration", iteration),
		attribute.String("step.mode", mode),
	))
}

// StartTool opens a child span for one tool invocation.
func (t *Tracer) StartTool(ctx context.Context, name, callID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "agent.tool", trace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.call_id", callID),
	))
}
