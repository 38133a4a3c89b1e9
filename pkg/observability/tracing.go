package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"liyu1981.xyz/iwown-health-service/pkg/common"
)

const tracerName = "liyu1981.xyz/iwown-health-service"

func Tracer() oteltrace.Tracer {
	return otel.Tracer(tracerName)
}

// SetupTracing installs the global tracer provider. Spans are exported over
// OTLP/HTTP (configured by the standard OTEL_EXPORTER_OTLP_* variables) only
// when exportEnabled is set.
func SetupTracing(ctx context.Context, exportEnabled bool) (shutdown func(context.Context) error, err error) {
	res := resource.NewSchemaless(attribute.String("service.name", common.ServiceName))
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if exportEnabled {
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
