package models

import (
	"github.com/erp/ordercore/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for products
type ProductModel struct {
	SoftDeleteModel
	Code            string          `gorm:"type:varchar(50);not null;index"`
	Name            string          `gorm:"type:varchar(200);not null"`
	Physical        bool            `gorm:"not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UpdatedByUserID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:      m.SoftDeleteModel.ToDomain(),
		Code:            m.Code,
		Name:            m.Name,
		Physical:        m.Physical,
		Quantity:        m.Quantity,
		UpdatedByUserID: m.UpdatedByUserID,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Name = p.Name
	m.Physical = p.Physical
	m.Quantity = p.Quantity
	m.UpdatedByUserID = p.UpdatedByUserID
}

// ProductModelFromDomain creates a new persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
