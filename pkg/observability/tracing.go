// Package observability provides tracing for scans.
package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// InstrumentationName names the tracer used by the scan packages.
const InstrumentationName = "github.com/ajitpratap0/nebula-fdw"

// Span names
const (
	SpanFetch = "scan.fetch"
	SpanBegin = "scan.begin"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
	// Writer receives exported spans; nil disables export.
	Writer io.Writer
}

// Tracer returns the scan tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// InitTracing installs an sdk tracer provider that exports spans to
// config.Writer. The returned function flushes and shuts it down.
func InitTracing(config TracingConfig) (func(context.Context) error, error) {
	if config.Writer == nil {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create tracing resource")
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(config.Writer))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// ConnectorAttr is the span attribute naming the connector.
func ConnectorAttr(connector string) attribute.KeyValue {
	return attribute.String("connector", connector)
}

// FetchSpan traces one page fetch. A nil FetchSpan records nothing.
type FetchSpan struct {
	span trace.Span
}

// StartFetch opens a scan.fetch span.
func StartFetch(ctx context.Context, connector, collection string, batchSize int, tokenPresent bool) (context.Context, *FetchSpan) {
	ctx, span := Tracer().Start(ctx, SpanFetch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			ConnectorAttr(connector),
			attribute.String("collection", collection),
			attribute.Int("batch_size", batchSize),
			attribute.Bool("token_present", tokenPresent),
		),
	)
	return ctx, &FetchSpan{span: span}
}

// End records the fetch outcome and closes the span.
func (s *FetchSpan) End(records int, nextToken bool, err error) {
	if s == nil {
		return
	}
	s.span.SetAttributes(
		attribute.Int("records", records),
		attribute.Bool("next_token", nextToken),
	)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
