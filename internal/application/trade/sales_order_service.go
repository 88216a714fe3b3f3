// Package trade implements the sales order use cases that touch stock:
// status updates with the confirmation edge, and totals recalculation.
package trade

import (
	"bytes"
	"context"
	"slices"

	"github.com/erp/ordercore/internal/application/transaction"
	"github.com/erp/ordercore/internal/application/validation"
	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/domain/trade"
	"github.com/erp/ordercore/internal/infrastructure/logger"
	"github.com/erp/ordercore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SalesOrderService handles sales order business operations
type SalesOrderService struct {
	scope   transaction.Scope
	outbox  transaction.OutboxAppender
	metrics *telemetry.ConsistencyMetrics
}

// Option configures a SalesOrderService
type Option func(*SalesOrderService)

// WithOutbox records a SalesOrderConfirmed event on every confirmation
func WithOutbox(outbox transaction.OutboxAppender) Option {
	return func(s *SalesOrderService) {
		if outbox != nil {
			s.outbox = outbox
		}
	}
}

// WithMetrics sets the consistency metrics
func WithMetrics(m *telemetry.ConsistencyMetrics) Option {
	return func(s *SalesOrderService) {
		s.metrics = m
	}
}

// NewSalesOrderService creates a new SalesOrderService
func NewSalesOrderService(scope transaction.Scope, opts ...Option) *SalesOrderService {
	s := &SalesOrderService{
		scope:  scope,
		outbox: transaction.DiscardOutbox{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// updateOutcome describes what an update did inside its transaction
type updateOutcome struct {
	previous   trade.OrderStatus
	transition trade.Transition
	deducted   int
}

// UpdateOrder persists the caller's order header.
//
// The stored status is re-read under a row lock in the same transaction. When the
// update moves the order into Confirmed, the quantity of every live line is deducted
// from its product and the totals are recomputed from those lines; if any step fails
// nothing is written. Totals on order are never taken from the caller: they are
// replaced with the stored ones, or the recomputed ones on confirmation.
func (s *SalesOrderService) UpdateOrder(ctx context.Context, order *trade.SalesOrder, audit shared.AuditContext) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "sales_order", "update")
	defer span.End()

	if order == nil {
		err := shared.ErrInvalidInput.WithMessage("Sales order cannot be nil")
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID.String(),
		telemetry.SpanAttrOrderStatus, order.Status.String(),
	)
	log := logger.L(ctx).With(
		zap.String("order_id", order.ID.String()),
		zap.String("order_status", order.Status.String()),
	)

	if err := order.Validate(); err != nil {
		s.reject(ctx, span, log, updateOutcome{}, err)
		return err
	}

	var outcome updateOutcome
	err := s.scope.RunAtomic(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		outcome, err = s.apply(ctx, repos, order, audit)
		return err
	})
	if err != nil {
		s.reject(ctx, span, log, outcome, err)
		return err
	}

	s.committed(ctx, span, log, outcome)
	return nil
}

// Update applies req to the stored order and persists it through the same path as UpdateOrder
func (s *SalesOrderService) Update(ctx context.Context, orderID uuid.UUID, req UpdateSalesOrderRequest, audit shared.AuditContext) (*SalesOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sales_order", "update")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrOrderStatus, req.Status,
	)
	log := logger.L(ctx).With(
		zap.String("order_id", orderID.String()),
		zap.String("order_status", req.Status),
	)

	if err := validation.Struct(req); err != nil {
		s.reject(ctx, span, log, updateOutcome{}, err)
		return nil, err
	}

	var (
		order   trade.SalesOrder
		outcome updateOutcome
	)
	err := s.scope.RunAtomic(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		current, err := repos.SalesOrders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		order = *current
		req.applyTo(&order)
		outcome, err = s.apply(ctx, repos, &order, audit)
		return err
	})
	if err != nil {
		s.reject(ctx, span, log, outcome, err)
		return nil, err
	}

	s.committed(ctx, span, log, outcome)
	return ToSalesOrderResponse(&order), nil
}

// apply runs the state machine for one update inside the caller's transaction
func (s *SalesOrderService) apply(ctx context.Context, repos transaction.Repositories, order *trade.SalesOrder, audit shared.AuditContext) (updateOutcome, error) {
	persisted, err := repos.SalesOrders().FindByIDForUpdate(ctx, order.ID)
	if err != nil {
		return updateOutcome{}, err
	}

	outcome := updateOutcome{
		previous:   persisted.Status,
		transition: trade.DetectTransition(persisted.Status, order.Status),
	}
	order.ApplyTotals(persisted.Totals())

	if outcome.transition == trade.TransitionConfirmation {
		outcome.deducted, err = s.confirm(ctx, repos, order, persisted, audit)
		if err != nil {
			return outcome, err
		}
	}

	order.StampUpdate(audit)
	if err := repos.SalesOrders().Update(ctx, order); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// confirm deducts the stock of every live line, recomputes the order totals and
// records the confirmation event. Lines are deducted in product id order so two
// confirmations sharing products always lock them in the same sequence.
// It returns the number of stock movements written.
func (s *SalesOrderService) confirm(ctx context.Context, repos transaction.Repositories, order, persisted *trade.SalesOrder, audit shared.AuditContext) (int, error) {
	items, err := repos.SalesOrderItems().FindActiveByOrder(ctx, order.ID)
	if err != nil {
		return 0, err
	}

	lines := make([]trade.SalesOrderItem, 0, len(items))
	for _, item := range items {
		if item.BelongsTo(order.ID) {
			lines = append(lines, item)
		}
	}
	slices.SortStableFunc(lines, func(a, b trade.SalesOrderItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})

	ledger := transaction.Ledger(repos)
	deducted := 0
	for _, item := range lines {
		movement, err := ledger.AdjustQuantity(ctx, inventory.Adjustment{
			ProductID:  item.ProductID,
			Delta:      item.EffectiveQuantity().Neg(),
			SourceType: inventory.SourceTypeSalesOrderConfirmation,
			SourceID:   order.ID.String(),
		}, audit)
		if err != nil {
			return 0, err
		}
		if movement != nil {
			deducted++
		}
	}

	// the tax is the one being saved with this update, not the stored one
	tax, err := findTax(ctx, repos.Taxes(), order.TaxID)
	if err != nil {
		return 0, err
	}
	if totals, ok := trade.Recalculate(persisted, lines, tax); ok {
		if err := repos.SalesOrders().UpdateTotals(ctx, order.ID, totals); err != nil {
			return 0, err
		}
		order.ApplyTotals(totals)
	}

	event := trade.NewSalesOrderConfirmedEvent(order, persisted.Status, lines, audit)
	if err := s.outbox.Append(ctx, repos.Outbox(), event); err != nil {
		return 0, err
	}
	return deducted, nil
}

func (s *SalesOrderService) committed(ctx context.Context, span trace.Span, log *logger.ContextLogger, outcome updateOutcome) {
	telemetry.SetAttributes(span, telemetry.SpanAttrTransition, outcome.transition.String())
	if outcome.transition == trade.TransitionConfirmation {
		s.metrics.RecordOrderConfirmed(ctx)
		s.metrics.RecordAdjustment(ctx, inventory.SourceTypeSalesOrderConfirmation.String(), outcome.deducted)
		telemetry.AddEvent(span, "stock_deducted", telemetry.SpanAttrItemCount, outcome.deducted)
		log.Info("sales order confirmed",
			zap.String("previous_status", outcome.previous.String()),
			zap.Int("movements", outcome.deducted),
		)
	} else {
		log.Debug("sales order updated", zap.String("previous_status", outcome.previous.String()))
	}
	telemetry.SetOK(span)
}

// reject records a failed update. A failed confirmation also counts as a rejected adjustment.
func (s *SalesOrderService) reject(ctx context.Context, span trace.Span, log *logger.ContextLogger, outcome updateOutcome, err error) {
	kind := string(shared.KindOf(err))
	telemetry.RecordError(span, err)
	telemetry.SetAttributes(span, telemetry.SpanAttrErrorKind, kind)
	if outcome.transition == trade.TransitionConfirmation {
		s.metrics.RecordAdjustmentRejected(ctx, telemetry.RejectionReason(err))
	}

	fields := []zap.Field{
		zap.String("transition", outcome.transition.String()),
		zap.String("error_kind", kind),
		zap.Error(err),
	}
	if shared.IsRetryable(err) {
		log.Error("sales order update failed", fields...)
		return
	}
	log.Warn("sales order update rejected", fields...)
}

// RecalculateOrderTotals recomputes the order's totals from its live items and tax and
// stores them. A missing or soft-deleted order is not an error; it reports false.
func (s *SalesOrderService) RecalculateOrderTotals(ctx context.Context, orderID uuid.UUID) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sales_order", "recalculate")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID.String())
	log := logger.L(ctx).With(zap.String("order_id", orderID.String()))

	var (
		updated bool
		totals  trade.OrderTotals
	)
	err := s.scope.RunAtomic(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		order, err := repos.SalesOrders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if shared.KindOf(err) == shared.KindNotFound {
				return nil
			}
			return err
		}

		items, err := repos.SalesOrderItems().FindActiveByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		tax, err := findTax(ctx, repos.Taxes(), order.TaxID)
		if err != nil {
			return err
		}

		var ok bool
		totals, ok = trade.Recalculate(order, items, tax)
		if !ok {
			return nil
		}
		if err := repos.SalesOrders().UpdateTotals(ctx, orderID, totals); err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.SetAttributes(span, telemetry.SpanAttrErrorKind, string(shared.KindOf(err)))
		log.Error("sales order recalculation failed", zap.Error(err))
		return false, err
	}

	s.metrics.RecordRecalculation(ctx, updated)
	if updated {
		log.Debug("sales order totals recalculated",
			zap.String("before_tax", totals.BeforeTax.String()),
			zap.String("tax", totals.TaxAmount.String()),
			zap.String("after_tax", totals.AfterTax.String()),
		)
	} else {
		log.Debug("sales order not found, nothing recalculated")
	}
	telemetry.SetOK(span)
	return updated, nil
}

// findTax loads the order's tax. An unset or missing tax counts as no tax.
func findTax(ctx context.Context, taxes trade.TaxRepository, taxID *uuid.UUID) (*trade.Tax, error) {
	if taxID == nil {
		return nil, nil
	}
	tax, err := taxes.FindByID(ctx, *taxID)
	if err != nil {
		if shared.KindOf(err) == shared.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return tax, nil
}
