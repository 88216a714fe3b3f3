package inventory

import (
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceType represents the document that caused a stock movement
type SourceType string

const (
	// SourceTypeSalesOrderConfirmation is stock consumed when a sales order is confirmed
	SourceTypeSalesOrderConfirmation SourceType = "SALES_ORDER_CONFIRMATION"
	// SourceTypeManualAdjustment is a direct correction outside the order flow
	SourceTypeManualAdjustment SourceType = "MANUAL_ADJUSTMENT"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeSalesOrderConfirmation,
		SourceTypeManualAdjustment:
		return true
	}
	return false
}

// StockMovement is an immutable record of one committed quantity change.
// Corrections are made with new movements, never by editing old ones.
type StockMovement struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Delta         decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	SourceType    SourceType
	SourceID      string
	Reason        string
	OperatorID    *uuid.UUID
	OccurredAt    time.Time
}

// NewStockMovement creates a movement record
func NewStockMovement(
	productID uuid.UUID,
	delta, balanceBefore decimal.Decimal,
	sourceType SourceType,
	sourceID string,
	audit shared.AuditContext,
) (*StockMovement, error) {
	if productID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Product ID cannot be empty")
	}
	if !sourceType.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("Invalid stock movement source type %q", sourceType)
	}
	return &StockMovement{
		ID:            uuid.New(),
		ProductID:     productID,
		Delta:         delta,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Add(delta),
		SourceType:    sourceType,
		SourceID:      sourceID,
		OperatorID:    audit.UserID,
		OccurredAt:    audit.Timestamp(),
	}, nil
}

// WithReason sets a free-text reason
func (m *StockMovement) WithReason(reason string) *StockMovement {
	m.Reason = reason
	return m
}

// IsConsumption returns true if the movement reduced stock
func (m *StockMovement) IsConsumption() bool {
	return m.Delta.IsNegative()
}
