package models

import (
	"time"

	"github.com/erp/ordercore/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderModel is the persistence model for the sales order header
type SalesOrderModel struct {
	SoftDeleteModel
	OrderNumber     string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	OrderStatus     trade.OrderStatus `gorm:"column:order_status;type:varchar(20);not null;index"`
	TaxID           *uuid.UUID        `gorm:"type:uuid"`
	BeforeTaxAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	TaxAmount       decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	AfterTaxAmount  decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Remark          string            `gorm:"type:text"`
	CreatedByUserID *uuid.UUID        `gorm:"type:uuid"`
	UpdatedByUserID *uuid.UUID        `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (SalesOrderModel) TableName() string {
	return "sales_orders"
}

// ToDomain converts the persistence model to a domain SalesOrder
func (m *SalesOrderModel) ToDomain() *trade.SalesOrder {
	return &trade.SalesOrder{
		BaseEntity:      m.SoftDeleteModel.ToDomain(),
		OrderNumber:     m.OrderNumber,
		Status:          m.OrderStatus,
		TaxID:           m.TaxID,
		BeforeTaxAmount: m.BeforeTaxAmount,
		TaxAmount:       m.TaxAmount,
		AfterTaxAmount:  m.AfterTaxAmount,
		Remark:          m.Remark,
		CreatedByUserID: m.CreatedByUserID,
		UpdatedByUserID: m.UpdatedByUserID,
	}
}

// FromDomain populates the persistence model from a domain SalesOrder
func (m *SalesOrderModel) FromDomain(o *trade.SalesOrder) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.OrderNumber = o.OrderNumber
	m.OrderStatus = o.Status
	m.TaxID = o.TaxID
	m.BeforeTaxAmount = o.BeforeTaxAmount
	m.TaxAmount = o.TaxAmount
	m.AfterTaxAmount = o.AfterTaxAmount
	m.Remark = o.Remark
	m.CreatedByUserID = o.CreatedByUserID
	m.UpdatedByUserID = o.UpdatedByUserID
}

// SalesOrderModelFromDomain creates a new persistence model from a domain SalesOrder
func SalesOrderModelFromDomain(o *trade.SalesOrder) *SalesOrderModel {
	m := &SalesOrderModel{}
	m.FromDomain(o)
	return m
}

// SalesOrderItemModel is the persistence model for order lines
type SalesOrderItemModel struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	SalesOrderID uuid.UUID        `gorm:"type:uuid;not null;index:idx_sales_order_items_order,priority:1"`
	ProductID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Quantity     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Total        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	IsNotDeleted bool             `gorm:"not null;index:idx_sales_order_items_order,priority:2"`
	CreatedAt    time.Time        `gorm:"not null"`
	UpdatedAt    time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SalesOrderItemModel) TableName() string {
	return "sales_order_items"
}

// ToDomain converts the persistence model to a domain SalesOrderItem
func (m *SalesOrderItemModel) ToDomain() trade.SalesOrderItem {
	return trade.SalesOrderItem{
		ID:           m.ID,
		SalesOrderID: m.SalesOrderID,
		ProductID:    m.ProductID,
		Quantity:     m.Quantity,
		Total:        m.Total,
		IsNotDeleted: m.IsNotDeleted,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SalesOrderItem
func (m *SalesOrderItemModel) FromDomain(i trade.SalesOrderItem) {
	m.ID = i.ID
	m.SalesOrderID = i.SalesOrderID
	m.ProductID = i.ProductID
	m.Quantity = i.Quantity
	m.Total = i.Total
	m.IsNotDeleted = i.IsNotDeleted
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// TaxModel is the persistence model for tax rates
type TaxModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name         string          `gorm:"type:varchar(100);not null"`
	Percentage   decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	IsNotDeleted bool            `gorm:"not null"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxModel) TableName() string {
	return "taxes"
}

// ToDomain converts the persistence model to a domain Tax
func (m *TaxModel) ToDomain() *trade.Tax {
	return &trade.Tax{
		ID:           m.ID,
		Name:         m.Name,
		Percentage:   m.Percentage,
		IsNotDeleted: m.IsNotDeleted,
	}
}
