package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrOutcome    = attribute.Key("outcome")
	AttrReason     = attribute.Key("reason")
	AttrSourceType = attribute.Key("source_type")
	AttrEventType  = attribute.Key("event_type")
)

// atomicScopeBuckets covers a single-row lock (milliseconds) up to a contended
// confirmation of a long order (seconds)
var atomicScopeBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Rejection reasons reported on the rejected adjustments counter
const (
	ReasonNegativeStock  = "negative_stock"
	ReasonNonPhysical    = "non_physical"
	ReasonNotFound       = "not_found"
	ReasonInvalid        = "invalid"
	ReasonInfrastructure = "infrastructure"
)

// RejectionReason maps an adjustment failure to its counter label
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrNegativeStock):
		return ReasonNegativeStock
	case errors.Is(err, shared.ErrNonPhysicalProduct):
		return ReasonNonPhysical
	case shared.KindOf(err) == shared.KindNotFound:
		return ReasonNotFound
	case shared.KindOf(err) == shared.KindInvalidOperation:
		return ReasonInvalid
	default:
		return ReasonInfrastructure
	}
}

// ConsistencyMetrics counts what the order/inventory core does.
// A nil *ConsistencyMetrics is valid and records nothing.
type ConsistencyMetrics struct {
	ordersConfirmed     metric.Int64Counter
	stockAdjustments    metric.Int64Counter
	adjustmentsRejected metric.Int64Counter
	recalculations      metric.Int64Counter
	outboxPublished     metric.Int64Counter
	atomicDuration      metric.Float64Histogram
}

type counterSpec struct {
	target      *metric.Int64Counter
	name        string
	description string
	unit        string
}

// NewConsistencyMetrics registers the instruments on meter
func NewConsistencyMetrics(meter metric.Meter) (*ConsistencyMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &ConsistencyMetrics{}

	counters := []counterSpec{
		{&m.ordersConfirmed, "ordercore.sales_order.confirmed_total",
			"Sales orders that crossed into Confirmed and had their stock deducted", "{order}"},
		{&m.stockAdjustments, "ordercore.inventory.adjustments_total",
			"Committed product quantity adjustments", "{adjustment}"},
		{&m.adjustmentsRejected, "ordercore.inventory.adjustments_rejected_total",
			"Quantity adjustments rejected before commit", "{adjustment}"},
		{&m.recalculations, "ordercore.sales_order.recalculations_total",
			"Order totals recalculations by outcome", "{recalculation}"},
		{&m.outboxPublished, "ordercore.outbox.published_total",
			"Outbox entries handed to the broker by outcome", "{event}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	m.atomicDuration, err = meter.Float64Histogram("ordercore.transaction.duration",
		metric.WithDescription("Duration of atomic scopes"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(atomicScopeBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram ordercore.transaction.duration: %w", err)
	}
	return m, nil
}

// RecordOrderConfirmed counts one confirmation edge
func (m *ConsistencyMetrics) RecordOrderConfirmed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersConfirmed.Add(ctx, 1)
}

// RecordAdjustment counts committed adjustments from a source
func (m *ConsistencyMetrics) RecordAdjustment(ctx context.Context, sourceType string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.stockAdjustments.Add(ctx, int64(count), metric.WithAttributes(AttrSourceType.String(sourceType)))
}

// RecordAdjustmentRejected counts a rejected adjustment
func (m *ConsistencyMetrics) RecordAdjustmentRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.adjustmentsRejected.Add(ctx, 1, metric.WithAttributes(AttrReason.String(reason)))
}

// RecordRecalculation counts a recalculation; updated=false is the no-op path
func (m *ConsistencyMetrics) RecordRecalculation(ctx context.Context, updated bool) {
	if m == nil {
		return
	}
	outcome := "noop"
	if updated {
		outcome = "updated"
	}
	m.recalculations.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
}

// RecordOutboxPublish counts a relay attempt
func (m *ConsistencyMetrics) RecordOutboxPublish(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.outboxPublished.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(eventType), AttrOutcome.String(outcome)))
}

// RecordAtomicScope records how long an atomic scope ran and whether it committed
func (m *ConsistencyMetrics) RecordAtomicScope(ctx context.Context, d time.Duration, committed bool) {
	if m == nil {
		return
	}
	outcome := "rollback"
	if committed {
		outcome = "commit"
	}
	m.atomicDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome)))
}
