package usecase_test

import (
	"context"
	"testing"

	"marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func callbackCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "fulfillment.callbacks" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func TestFulfillmentUsecase_HandleCallback_CountsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	env := newTestEnv(t, true)
	ctx := context.Background()

	buyer := testutil.SeedUser(t, env.db, "sita@example.com")
	p := testutil.SeedProduct(t, env.db, "Mug", 300, 5)
	testutil.SeedCartItem(t, env.db, buyer.ID, p.ID, 300, 1)
	placed := placeOrder(t, env, buyer)
	env.notifier.On("SendReceipt", mock.Anything, mock.Anything).Return(nil).Once()

	before := callbackCounts(t, reader)

	_, err := env.fulfill.HandleCallback(ctx, buyer.ID, placed.OrderID,
		encodeCallback(t, map[string]interface{}{"status": "PENDING", "transaction_code": "M1"}))
	require.Error(t, err)
	_, err = env.fulfill.HandleCallback(ctx, buyer.ID, placed.OrderID, completeCallback(t, "M1"))
	require.NoError(t, err)
	_, err = env.fulfill.HandleCallback(ctx, buyer.ID, placed.OrderID, completeCallback(t, "M1"))
	require.NoError(t, err)

	after := callbackCounts(t, reader)
	assert.Equal(t, int64(1), after["not_completed"]-before["not_completed"])
	assert.Equal(t, int64(1), after["fulfilled"]-before["fulfilled"])
	assert.Equal(t, int64(1), after["replayed"]-before["replayed"])
}
