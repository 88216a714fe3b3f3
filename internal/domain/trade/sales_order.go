package trade

import (
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeSalesOrder is the aggregate type for sales orders
const AggregateTypeSalesOrder = "SalesOrder"

// OrderStatus represents the status of a sales order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsConfirmed reports whether the status is Confirmed. Every other status is opaque here.
func (s OrderStatus) IsConfirmed() bool {
	return s == OrderStatusConfirmed
}

// SalesOrder is the order header. Totals are derived from its items and
// only change through ApplyTotals.
type SalesOrder struct {
	shared.BaseEntity
	OrderNumber     string
	Status          OrderStatus
	TaxID           *uuid.UUID
	BeforeTaxAmount decimal.Decimal
	TaxAmount       decimal.Decimal
	AfterTaxAmount  decimal.Decimal
	Remark          string
	CreatedByUserID *uuid.UUID
	UpdatedByUserID *uuid.UUID
}

// NewSalesOrder creates a draft order with zero totals
func NewSalesOrder(orderNumber string, taxID *uuid.UUID) (*SalesOrder, error) {
	if orderNumber == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Order number cannot be empty")
	}
	return &SalesOrder{
		BaseEntity:      shared.NewBaseEntity(),
		OrderNumber:     orderNumber,
		Status:          OrderStatusDraft,
		TaxID:           taxID,
		BeforeTaxAmount: decimal.Zero,
		TaxAmount:       decimal.Zero,
		AfterTaxAmount:  decimal.Zero,
	}, nil
}

// Validate checks the caller-supplied fields of an update
func (o *SalesOrder) Validate() error {
	if o.ID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("Sales order ID cannot be empty")
	}
	if !o.Status.IsValid() {
		return shared.ErrInvalidInput.WithMessage("Invalid order status %q", o.Status)
	}
	return nil
}

// StampUpdate records who changed the order and when
func (o *SalesOrder) StampUpdate(audit shared.AuditContext) {
	o.UpdatedByUserID = audit.UserID
	o.UpdatedAt = audit.Timestamp()
}

// ApplyTotals overwrites the derived amount columns
func (o *SalesOrder) ApplyTotals(t OrderTotals) {
	o.BeforeTaxAmount = t.BeforeTax
	o.TaxAmount = t.TaxAmount
	o.AfterTaxAmount = t.AfterTax
}

// Totals returns the stored amounts
func (o *SalesOrder) Totals() OrderTotals {
	return OrderTotals{
		BeforeTax: o.BeforeTaxAmount,
		TaxAmount: o.TaxAmount,
		AfterTax:  o.AfterTaxAmount,
	}
}

// SalesOrderItem is a line of a sales order. This core only reads items.
type SalesOrderItem struct {
	ID           uuid.UUID
	SalesOrderID uuid.UUID
	ProductID    uuid.UUID
	// Quantity is nullable in storage; nil counts as zero
	Quantity     *decimal.Decimal
	Total        decimal.Decimal
	IsNotDeleted bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffectiveQuantity returns the quantity, or zero when absent
func (i SalesOrderItem) EffectiveQuantity() decimal.Decimal {
	if i.Quantity == nil {
		return decimal.Zero
	}
	return *i.Quantity
}

// BelongsTo reports whether the item is a live line of the given order
func (i SalesOrderItem) BelongsTo(orderID uuid.UUID) bool {
	return i.IsNotDeleted && i.SalesOrderID == orderID
}

// Tax is a read-only tax rate, percentage in 0..100
type Tax struct {
	ID           uuid.UUID
	Name         string
	Percentage   decimal.Decimal
	IsNotDeleted bool
}
