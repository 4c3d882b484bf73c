package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInt64SyncGaugeReportsLastValue(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	gauge, err := NewInt64SyncGauge(provider.Meter("test"), "relayer.test_gauge")
	require.NoError(t, err)

	a := attribute.String("pipeline", "a")
	b := attribute.String("pipeline", "b")
	gauge.Set(1, a)
	gauge.Set(5, a)
	gauge.Set(7, b)

	v, ok := gauge.Get(a)
	require.True(t, ok)
	require.Equal(t, int64(5), v)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	data, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 2)
	for _, dp := range data.DataPoints {
		p, _ := dp.Attributes.Value("pipeline")
		switch p.AsString() {
		case "a":
			require.Equal(t, int64(5), dp.Value)
		case "b":
			require.Equal(t, int64(7), dp.Value)
		default:
			t.Fatalf("unexpected attributes %v", dp.Attributes)
		}
	}
}

func TestNilInt64SyncGauge(t *testing.T) {
	var gauge *Int64SyncGauge
	gauge.Set(1)
	_, ok := gauge.Get()
	require.False(t, ok)
}
