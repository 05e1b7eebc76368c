package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"ruralclinic/internal/config"
)

type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	config         config.TelemetryConfig
}

// New installs a global tracer provider exporting over OTLP gRPC. Without
// an exporter endpoint it returns a disabled instance and spans stay no-op.
func New(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		logger.Info("telemetry disabled, no exporter endpoint")
		return &Telemetry{config: cfg}, nil
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOptions(cfg.ExporterURL)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := NewTracerProvider(cfg, sdktrace.WithBatcher(exporter))

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.ExporterURL,
		"sampling_ratio", cfg.SamplingRatio,
	)
	return &Telemetry{tracerProvider: tp, config: cfg}, nil
}

// NewTracerProvider builds a provider carrying the service resource and
// ratio sampler. opts attach exporters or span processors.
func NewTracerProvider(cfg config.TelemetryConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRatio))),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

// exporterOptions strips the scheme; only https endpoints use TLS.
func exporterOptions(url string) []otlptracegrpc.Option {
	endpoint := strings.TrimPrefix(url, "grpc://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if strings.HasPrefix(endpoint, "https://") {
		return []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(strings.TrimPrefix(endpoint, "https://"))}
	}
	return []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	}
}

// TracerProvider returns the installed provider, or the global one when
// telemetry is disabled.
func (t *Telemetry) TracerProvider() oteltrace.TracerProvider {
	if t.tracerProvider != nil {
		return t.tracerProvider
	}
	return otel.GetTracerProvider()
}

func (t *Telemetry) IsEnabled() bool {
	return t.tracerProvider != nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider == nil {
		return nil
	}
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("trace provider shutdown: %w", err)
	}
	return nil
}
