package inventory

import (
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeProduct is the aggregate type stock events are published under
const AggregateTypeProduct = "Product"

// EventTypeProductQuantityAdjusted is raised for a direct stock correction
const EventTypeProductQuantityAdjusted = "ProductQuantityAdjusted"

// ProductQuantityAdjustedEvent is raised when stock is corrected outside the order flow
type ProductQuantityAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID     uuid.UUID       `json:"product_id"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reason        string          `json:"reason,omitempty"`
	OperatorID    string          `json:"operator_id,omitempty"`
}

// NewProductQuantityAdjustedEvent builds the event from the recorded movement
func NewProductQuantityAdjustedEvent(m *StockMovement) *ProductQuantityAdjustedEvent {
	operator := ""
	if m.OperatorID != nil {
		operator = m.OperatorID.String()
	}
	return &ProductQuantityAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductQuantityAdjusted, AggregateTypeProduct, m.ProductID, m.OccurredAt),
		ProductID:       m.ProductID,
		Delta:           m.Delta,
		BalanceBefore:   m.BalanceBefore,
		BalanceAfter:    m.BalanceAfter,
		Reason:          m.Reason,
		OperatorID:      operator,
	}
}
