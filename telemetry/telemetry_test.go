package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetup(t *testing.T) {
	// nothing listens there, exporters connect lazily anyway
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:1")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	logger, shutdown, err := Setup(context.Background(), "negotiator-test")
	require.NoError(t, err)
	require.NotNil(t, logger)

	require.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	require.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())
	require.IsType(t, &sdklog.LoggerProvider{}, global.GetLoggerProvider())

	logger.Info("hello", "from", "test")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// exporting may fail, as there's no collector. Shutting down must not hang though
	_ = shutdown(ctx)
	require.NoError(t, shutdown(ctx))
}
