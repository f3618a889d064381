package obs

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	orderValueOnce sync.Once
	orderValue     metric.Int64Histogram
)

// RecordOrderValue records the order total in paise on the global meter.
func RecordOrderValue(ctx context.Context, paise int64, paymentMethod string) {
	orderValueOnce.Do(func() {
		h, err := otel.Meter("mithai/order").Int64Histogram(
			"order.value",
			metric.WithUnit("{paise}"),
			metric.WithDescription("Order total in minor currency units."),
		)
		if err == nil {
			orderValue = h
		}
	})
	if orderValue == nil {
		return
	}
	orderValue.Record(ctx, paise, metric.WithAttributes(attribute.String("payment_method", paymentMethod)))
}
