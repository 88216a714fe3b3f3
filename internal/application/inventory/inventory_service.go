// Package inventory implements direct stock adjustments outside the order flow.
package inventory

import (
	"context"

	"github.com/erp/ordercore/internal/application/transaction"
	"github.com/erp/ordercore/internal/application/validation"
	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/infrastructure/logger"
	"github.com/erp/ordercore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InventoryService handles stock corrections
type InventoryService struct {
	scope   transaction.Scope
	outbox  transaction.OutboxAppender
	metrics *telemetry.ConsistencyMetrics
}

// Option configures an InventoryService
type Option func(*InventoryService)

// WithOutbox records a ProductQuantityAdjusted event for every committed adjustment
func WithOutbox(outbox transaction.OutboxAppender) Option {
	return func(s *InventoryService) {
		if outbox != nil {
			s.outbox = outbox
		}
	}
}

// WithMetrics sets the consistency metrics
func WithMetrics(m *telemetry.ConsistencyMetrics) Option {
	return func(s *InventoryService) {
		s.metrics = m
	}
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(scope transaction.Scope, opts ...Option) *InventoryService {
	s := &InventoryService{
		scope:  scope,
		outbox: transaction.DiscardOutbox{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdjustProductQuantity adds delta to the product's stock level in its own atomic scope
func (s *InventoryService) AdjustProductQuantity(ctx context.Context, productID uuid.UUID, delta decimal.Decimal, audit shared.AuditContext) error {
	_, err := s.Adjust(ctx, AdjustQuantityRequest{ProductID: productID, Delta: delta}, audit)
	return err
}

// Adjust applies a stock correction and returns the recorded movement.
// A zero delta writes nothing and returns nil.
func (s *InventoryService) Adjust(ctx context.Context, req AdjustQuantityRequest, audit shared.AuditContext) (*StockMovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "adjust_quantity")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrDelta, req.Delta.String(),
	)
	log := logger.L(ctx).With(
		zap.String("product_id", req.ProductID.String()),
		zap.String("delta", req.Delta.String()),
	)

	if err := validation.Struct(req); err != nil {
		s.reject(ctx, span, log, err)
		return nil, err
	}

	var movement *inventory.StockMovement
	err := s.scope.RunAtomic(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		m, err := transaction.Ledger(repos).AdjustQuantity(ctx, inventory.Adjustment{
			ProductID:  req.ProductID,
			Delta:      req.Delta,
			SourceType: inventory.SourceTypeManualAdjustment,
			Reason:     req.Reason,
		}, audit)
		if err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		movement = m
		return s.outbox.Append(ctx, repos.Outbox(), inventory.NewProductQuantityAdjustedEvent(m))
	})
	if err != nil {
		s.reject(ctx, span, log, err)
		return nil, err
	}

	if movement != nil {
		s.metrics.RecordAdjustment(ctx, inventory.SourceTypeManualAdjustment.String(), 1)
		log.Info("product quantity adjusted",
			zap.String("balance_after", movement.BalanceAfter.String()),
		)
	}
	telemetry.SetOK(span)
	return ToStockMovementResponse(movement), nil
}

// reject records a failed adjustment. Business rule violations are expected
// and logged at warn; infrastructure failures at error.
func (s *InventoryService) reject(ctx context.Context, span trace.Span, log *logger.ContextLogger, err error) {
	telemetry.RecordError(span, err)
	telemetry.SetAttributes(span, telemetry.SpanAttrErrorKind, string(shared.KindOf(err)))
	s.metrics.RecordAdjustmentRejected(ctx, telemetry.RejectionReason(err))

	fields := []zap.Field{zap.String("error_kind", string(shared.KindOf(err))), zap.Error(err)}
	if shared.IsRetryable(err) {
		log.Error("product quantity adjustment failed", fields...)
		return
	}
	log.Warn("product quantity adjustment rejected", fields...)
}
