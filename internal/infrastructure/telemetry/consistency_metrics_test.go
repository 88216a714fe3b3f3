package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, kv ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	want := attribute.NewSet(kv...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestConsistencyMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := telemetry.NewConsistencyMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOrderConfirmed(ctx)
	m.RecordOrderConfirmed(ctx)
	m.RecordAdjustment(ctx, "SALES_ORDER_CONFIRMATION", 3)
	m.RecordAdjustment(ctx, "MANUAL_ADJUSTMENT", 0)
	m.RecordAdjustmentRejected(ctx, telemetry.ReasonNegativeStock)
	m.RecordRecalculation(ctx, true)
	m.RecordRecalculation(ctx, false)
	m.RecordAtomicScope(ctx, 15*time.Millisecond, true)

	data := collect(t, reader)

	assert.Equal(t, int64(2), sumFor(t, data["ordercore.sales_order.confirmed_total"]))
	assert.Equal(t, int64(3), sumFor(t, data["ordercore.inventory.adjustments_total"],
		telemetry.AttrSourceType.String("SALES_ORDER_CONFIRMATION")))
	assert.Equal(t, int64(0), sumFor(t, data["ordercore.inventory.adjustments_total"],
		telemetry.AttrSourceType.String("MANUAL_ADJUSTMENT")))
	assert.Equal(t, int64(1), sumFor(t, data["ordercore.inventory.adjustments_rejected_total"],
		telemetry.AttrReason.String(telemetry.ReasonNegativeStock)))
	assert.Equal(t, int64(1), sumFor(t, data["ordercore.sales_order.recalculations_total"],
		telemetry.AttrOutcome.String("noop")))

	hist, ok := data["ordercore.transaction.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestConsistencyMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.ConsistencyMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordOrderConfirmed(ctx)
		m.RecordAdjustment(ctx, "X", 1)
		m.RecordAdjustmentRejected(ctx, telemetry.ReasonNotFound)
		m.RecordRecalculation(ctx, true)
		m.RecordOutboxPublish(ctx, "E", "sent")
		m.RecordAtomicScope(ctx, time.Second, false)
	})
}

func TestNewConsistencyMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewConsistencyMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestRejectionReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{shared.ErrNegativeStock.WithMessage("A went negative"), telemetry.ReasonNegativeStock},
		{shared.ErrNonPhysicalProduct, telemetry.ReasonNonPhysical},
		{shared.NewNotFoundError("Product x not found"), telemetry.ReasonNotFound},
		{shared.ErrInvalidInput, telemetry.ReasonInvalid},
		{errors.New("connection reset"), telemetry.ReasonInfrastructure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, telemetry.RejectionReason(tt.err), tt.err.Error())
	}
}
