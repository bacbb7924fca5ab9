// Package tracing wires OpenTelemetry into the exporter. Spans cover one export run,
// the title listing and each page fetch.
package tracing

import (
	"context"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span the exporter starts
const TracerName = "mediawiki-export"

// Span attribute keys
const (
	AttrAction    = "wiki.api.action"
	AttrPageTitle = "wiki.page.title"
	AttrRunID     = "export.run_id"
	AttrOutputDir = "export.output_dir"
)

// Config selects where spans go. Tracing stays off unless it is enabled or an
// OTLP endpoint is given; enabled without an endpoint prints spans to stdout.
type Config struct {
	Enabled      bool   `yaml:"tracing_enabled" env:"OTEL_ENABLED"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig reads tracing settings from the YAML file at path, if any, then the environment
func LoadConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read tracing settings: %w", err)
	}
	return cfg, nil
}

// Active reports whether Setup will install a tracer provider
func (c Config) Active() bool {
	return c.Enabled || c.OTLPEndpoint != ""
}

// Setup installs a global tracer provider for service and returns a shutdown function
// that flushes pending spans. With an inactive config it installs nothing.
func Setup(ctx context.Context, cfg Config, service, version string) (func(context.Context) error, error) {
	if !cfg.Active() {
		return func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	if cfg.OTLPEndpoint != "" {
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
		)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartSpan starts a span on the exporter's tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// AddWikiAttributes tags a span with the API action and, for page fetches, the title
func AddWikiAttributes(span trace.Span, action, page string) {
	span.SetAttributes(attribute.String(AttrAction, action))
	if page != "" {
		span.SetAttributes(attribute.String(AttrPageTitle, page))
	}
}

// AddRunAttributes tags a span with the export run it belongs to
func AddRunAttributes(span trace.Span, runID, outputDir string) {
	span.SetAttributes(
		attribute.String(AttrRunID, runID),
		attribute.String(AttrOutputDir, outputDir),
	)
}

// RecordError records err on the span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
