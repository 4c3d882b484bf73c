package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func disableExporters(t *testing.T) {
	t.Setenv(tracesExporterKey, "none")
	t.Setenv(metricsExporterKey, "none")
	t.Setenv(logsExporterKey, "none")
}

func TestSetupOTelSDK(t *testing.T) {
	disableExporters(t)
	ctx := context.Background()

	shutdown, err := SetupOTelSDK(ctx, Options{ServiceName: "test-relayer"})
	require.NoError(t, err)
	require.NotNil(t, ProcessedHeaderGauge)
	require.NoError(t, shutdown(ctx))
}

func TestSetupOTelSDKUnsupportedExporter(t *testing.T) {
	disableExporters(t)
	t.Setenv(tracesExporterKey, "zipkin")

	_, err := SetupOTelSDK(context.Background(), Options{})
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestSetupOTelSDKUnsupportedPropagator(t *testing.T) {
	disableExporters(t)
	t.Setenv(propagatorsKey, "b3")

	_, err := SetupOTelSDK(context.Background(), Options{})
	require.ErrorContains(t, err, "unsupported propagator")
}

func TestNewResource(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")

	res, err := newResource(context.Background(), Options{})
	require.NoError(t, err)
	v, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	require.Equal(t, defaultServiceName, v.AsString())

	t.Setenv("OTEL_SERVICE_NAME", "from-env")
	res, err = newResource(context.Background(), Options{ServiceName: "from-options"})
	require.NoError(t, err)
	v, _ = res.Set().Value(semconv.ServiceNameKey)
	require.Equal(t, "from-env", v.AsString())
}
