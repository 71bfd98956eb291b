package observability

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/roadpricing-sim/roadpricing-sim/sim/experiment"

// TracingConfig governs how experiment tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	// Writer receives the exported spans as JSON.
	Writer io.Writer
}

// InitTracing installs a tracer provider exporting to cfg.Writer, or a noop
// provider when tracing is disabled. It returns a shutdown function that
// flushes pending spans.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled || cfg.Writer == nil {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug("tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Writer),
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}

	service := cfg.ServiceName
	if service == "" {
		service = "roadpricing-sim"
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", service)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Infof("tracing enabled for service %s", service)
	return tp.Shutdown, nil
}

// Tracer returns the experiment tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartPhase opens a span for one phase of an episode.
func StartPhase(ctx context.Context, phase string, episode int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, phase, trace.WithAttributes(attribute.Int("episode", episode)))
}

// ShutdownWithTimeout invokes the provided shutdown function with a bounded
// timeout, logging errors in the shutdown path.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warnf("tracing shutdown failed: %v", err)
	}
}
