// Package telemetry configures OpenTelemetry tracing for a single command
// invocation.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects the exporter.
type Config struct {
	// Exporter is "none" (default) or "stdout".
	Exporter    string `mapstructure:"exporter"`
	ServiceName string `mapstructure:"service_name"`
	// Writer receives stdout-exported spans. Defaults to os.Stderr.
	Writer io.Writer `mapstructure:"-"`
}

// Provider wraps the tracer provider for one invocation.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider builds a provider from cfg and installs it globally so the
// fetch, registry, and installer packages pick it up through otel.Tracer.
func NewProvider(cfg Config) (*Provider, error) {
	switch cfg.Exporter {
	case "", "none":
		np := noop.NewTracerProvider()
		otel.SetTracerProvider(np)
		return &Provider{tracer: np.Tracer("noop")}, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.Exporter)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "compkg"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)

	return &Provider{provider: tp, tracer: tp.Tracer(name)}, nil
}

// Tracer returns the configured tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
