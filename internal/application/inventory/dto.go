package inventory

import (
	"time"

	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustQuantityRequest represents a direct stock correction
type AdjustQuantityRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Delta     decimal.Decimal `json:"delta"`
	Reason    string          `json:"reason" validate:"max=500"`
}

// StockMovementResponse represents a committed stock movement
type StockMovementResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	SourceType    string          `json:"source_type"`
	SourceID      string          `json:"source_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	OperatorID    *uuid.UUID      `json:"operator_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ToStockMovementResponse converts a domain StockMovement to a response
func ToStockMovementResponse(m *inventory.StockMovement) *StockMovementResponse {
	if m == nil {
		return nil
	}
	return &StockMovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Delta:         m.Delta,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		SourceType:    m.SourceType.String(),
		SourceID:      m.SourceID,
		Reason:        m.Reason,
		OperatorID:    m.OperatorID,
		OccurredAt:    m.OccurredAt,
	}
}
