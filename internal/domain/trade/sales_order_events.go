package trade

import (
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTypeSalesOrderConfirmed is raised once per order, on the confirmation edge
const EventTypeSalesOrderConfirmed = "SalesOrderConfirmed"

// ConfirmedLine is the stock consumed by one order line
type ConfirmedLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// SalesOrderConfirmedEvent is raised when a sales order is confirmed and its stock deducted
type SalesOrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	PreviousStatus OrderStatus     `json:"previous_status"`
	Lines          []ConfirmedLine `json:"lines"`
	AfterTaxAmount decimal.Decimal `json:"after_tax_amount"`
	ConfirmedBy    string          `json:"confirmed_by,omitempty"`
}

// NewSalesOrderConfirmedEvent creates a new SalesOrderConfirmedEvent
func NewSalesOrderConfirmedEvent(order *SalesOrder, previous OrderStatus, items []SalesOrderItem, audit shared.AuditContext) *SalesOrderConfirmedEvent {
	lines := make([]ConfirmedLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, ConfirmedLine{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Quantity:  item.EffectiveQuantity(),
		})
	}
	return &SalesOrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesOrderConfirmed, AggregateTypeSalesOrder, order.ID, audit.Timestamp()),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		PreviousStatus:  previous,
		Lines:           lines,
		AfterTaxAmount:  order.AfterTaxAmount,
		ConfirmedBy:     audit.UserIDString(),
	}
}
