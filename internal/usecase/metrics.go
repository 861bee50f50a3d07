package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 決済戻りの結果ラベル
const (
	outcomeFulfilled    = "fulfilled"
	outcomeReplayed     = "replayed"
	outcomeNotCompleted = "not_completed"
	outcomeRejected     = "rejected"
	outcomeFailed       = "failed"
)

var meter = otel.Meter("marketplace/internal/usecase")

// MeterProviderが後から設定されても計測はそちらへ流れる
var callbackCounter, _ = meter.Int64Counter("fulfillment.callbacks",
	metric.WithDescription("Payment callbacks handled, by outcome"),
	metric.WithUnit("{callback}"),
)

var receiptRelinkCounter, _ = meter.Int64Counter("receipt.relinks",
	metric.WithDescription("Orders whose payment link was repaired on the receipt page"),
	metric.WithUnit("{order}"),
)

func countCallback(ctx context.Context, outcome string) {
	if callbackCounter == nil {
		return
	}
	callbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func countRelink(ctx context.Context, legacy bool) {
	if receiptRelinkCounter == nil {
		return
	}
	receiptRelinkCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("legacy_lookup", legacy)))
}
