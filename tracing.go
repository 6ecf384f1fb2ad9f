package runcshim

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies spans emitted by this module in whatever backend
// collects them.
const tracerName = "github.com/container-tools/runcshim"

// InitTracing wires an OTLP/gRPC exporter, if endpoint is non-empty, and
// returns a shutdown func that must be called before the short-lived shim
// process exits so buffered spans are flushed. With an empty endpoint it
// leaves the global provider untouched, which is a no-op by default: most
// invocations are pass-through and tracing
// them would be pure overhead for an operator who hasn't configured a
// collector.
func InitTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName("runcshim"),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the module-wide tracer. Safe to call whether or not
// InitTracing configured a real exporter: the global provider defaults to a
// no-op implementation.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan is a thin convenience wrapper used at the points worth tracing
// here: one span per lifecycle engine invocation, and one span per
// administrative CLI finalize run.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
