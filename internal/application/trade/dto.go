package trade

import (
	"time"

	"github.com/erp/ordercore/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UpdateSalesOrderRequest carries the caller-editable columns of a sales order header
type UpdateSalesOrderRequest struct {
	OrderNumber string     `json:"order_number" validate:"required,max=50"`
	Status      string     `json:"status" validate:"required,oneof=DRAFT CONFIRMED SHIPPED COMPLETED CANCELLED"`
	TaxID       *uuid.UUID `json:"tax_id"`
	Remark      string     `json:"remark" validate:"max=2000"`
}

// applyTo copies the request onto order. Totals are never taken from the caller.
func (r UpdateSalesOrderRequest) applyTo(order *trade.SalesOrder) {
	order.OrderNumber = r.OrderNumber
	order.Status = trade.OrderStatus(r.Status)
	order.TaxID = r.TaxID
	order.Remark = r.Remark
}

// SalesOrderResponse represents a sales order header
type SalesOrderResponse struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	Status          string          `json:"status"`
	TaxID           *uuid.UUID      `json:"tax_id,omitempty"`
	BeforeTaxAmount decimal.Decimal `json:"before_tax_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	AfterTaxAmount  decimal.Decimal `json:"after_tax_amount"`
	Remark          string          `json:"remark,omitempty"`
	UpdatedByUserID *uuid.UUID      `json:"updated_by,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToSalesOrderResponse converts a domain SalesOrder to a response
func ToSalesOrderResponse(order *trade.SalesOrder) *SalesOrderResponse {
	if order == nil {
		return nil
	}
	return &SalesOrderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status.String(),
		TaxID:           order.TaxID,
		BeforeTaxAmount: order.BeforeTaxAmount,
		TaxAmount:       order.TaxAmount,
		AfterTaxAmount:  order.AfterTaxAmount,
		Remark:          order.Remark,
		UpdatedByUserID: order.UpdatedByUserID,
		UpdatedAt:       order.UpdatedAt,
	}
}
