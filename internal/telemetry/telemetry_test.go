package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"ruralclinic/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_DisabledWithoutEndpoint(t *testing.T) {
	tel, err := New(context.Background(), config.TelemetryConfig{ServiceName: "ruralclinic"}, quietLogger())

	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, otel.GetTracerProvider(), tel.TracerProvider())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InstallsGlobalProvider(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	cfg := config.TelemetryConfig{ExporterURL: "http://127.0.0.1:4317", ServiceName: "ruralclinic", SamplingRatio: 1}

	tel, err := New(context.Background(), cfg, quietLogger())

	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tel.Shutdown(ctx)
}

func TestNewTracerProvider_ResourceAndSampling(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  int
	}{
		{"always", 1, 1},
		{"never", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			cfg := config.TelemetryConfig{ServiceName: "ruralclinic", Environment: "test", SamplingRatio: tt.ratio}
			tp := NewTracerProvider(cfg, sdktrace.WithSpanProcessor(sr))

			_, span := tp.Tracer("test").Start(context.Background(), "llm.diagnosis")
			span.End()

			spans := sr.Ended()
			require.Len(t, spans, tt.want)
			if tt.want == 0 {
				return
			}
			assert.Contains(t, spans[0].Resource().Attributes(), attribute.String("service.name", "ruralclinic"))
			assert.Contains(t, spans[0].Resource().Attributes(), attribute.String("deployment.environment", "test"))
		})
	}
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("http://collector:4317"), 2)
	assert.Len(t, exporterOptions("collector:4317"), 2)
	assert.Len(t, exporterOptions("https://otlp.example.com:443"), 1)
}
