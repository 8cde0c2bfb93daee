// Package tracing configures OpenTelemetry and provides span helpers for
// the HTTP and Kafka paths of the hold service.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"

	"github.com/creditx/hold-service/internal/config"
)

const instrumentationName = "github.com/creditx/hold-service"

// Span attribute keys
const (
	AttrTransactionID = attribute.Key("hold.transaction_id")
	AttrHoldID        = attribute.Key("hold.id")
	AttrEventKind     = attribute.Key("hold.event_kind")
	AttrEventID       = attribute.Key("hold.event_id")
)

var (
	newExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(version),
			),
		)
	}
)

// Setup installs a global tracer provider exporting over OTLP gRPC and returns
// its shutdown function. When tracing is disabled the shutdown is a no-op and
// the globals are left untouched.
func Setup(ctx context.Context, cfg config.TracingConfig, serviceName, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newExporterFn(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := newResourceFn(ctx, serviceName, version)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartConsumerSpan continues the trace carried in Kafka headers
func StartConsumerSpan(ctx context.Context, name string, headers map[string]string) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
	return Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindConsumer))
}

// TagTransaction annotates the span in ctx with the identifiers of an inbound event
func TagTransaction(ctx context.Context, transactionID, holdID int64, kind string) {
	trace.SpanFromContext(ctx).SetAttributes(
		AttrTransactionID.Int64(transactionID),
		AttrHoldID.Int64(holdID),
		AttrEventKind.String(kind),
	)
}

func TagEventID(ctx context.Context, eventID string) {
	trace.SpanFromContext(ctx).SetAttributes(AttrEventID.String(eventID))
}

// RecordError marks the span in ctx as failed
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
