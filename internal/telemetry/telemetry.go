// Package telemetry installs the OpenTelemetry tracer provider and
// propagators shared by the data service and the terminal host.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/logging"
)

const batchTimeout = 5 * time.Second

// Shutdown flushes and stops whatever Init installed.
type Shutdown func(context.Context) error

// Init sets the W3C propagators and, when an OTLP endpoint is configured,
// a batching tracer provider exporting over gRPC. The returned Shutdown is
// never nil.
func Init(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (Shutdown, error) {
	logger = logging.Component(logger, "telemetry")
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	noop := func(context.Context) error { return nil }
	if cfg.OTLPEndpoint == "" {
		logger.Debug("trace export disabled")
		return noop, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return noop, fmt.Errorf("create trace exporter: %w", err)
	}

	tp, err := NewTracerProvider(cfg,
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	if err != nil {
		return noop, errors.Join(err, exporter.Shutdown(ctx))
	}
	otel.SetTracerProvider(tp)

	logger.Info("trace export enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)
	return tp.Shutdown, nil
}

// NewTracerProvider builds an SDK provider tagged with the service resource.
func NewTracerProvider(cfg config.TelemetryConfig, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}
	return sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...), nil
}
