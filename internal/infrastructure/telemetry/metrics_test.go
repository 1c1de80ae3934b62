package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/distribuidora/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.Config{Enabled: false}, time.Second, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("orders"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader)
	ctx := context.Background()

	c, err := telemetry.NewCounter(mp.Meter("test"), "requests_total", "Requests", "1")
	require.NoError(t, err)
	c.Inc(ctx, telemetry.AttrHTTPMethod.String("GET"))
	c.Add(ctx, 4, telemetry.AttrHTTPMethod.String("POST"))

	assert.Equal(t, int64(5), intSum(t, collect(t, reader)["requests_total"]))
}

func TestHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader)
	ctx := context.Background()

	h, err := telemetry.NewHistogram(mp.Meter("test"), telemetry.HistogramOpts{
		Name:       "request_duration_seconds",
		Unit:       "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)
	h.Record(ctx, 0.02)
	h.RecordDuration(ctx, 300*time.Millisecond)

	data, ok := collect(t, reader)["request_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	dp := data.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.InDelta(t, 0.32, dp.Sum, 1e-9)
	assert.Equal(t, telemetry.HTTPDurationBuckets, dp.Bounds)
}
