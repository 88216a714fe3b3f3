package models

import (
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
)

// SoftDeleteModel provides the id, soft-delete flag and timestamps shared by business tables.
// IsNotDeleted has no column default so that an explicit false is written as given.
type SoftDeleteModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	IsNotDeleted bool      `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// ToDomain converts SoftDeleteModel to domain BaseEntity
func (m *SoftDeleteModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:           m.ID,
		IsNotDeleted: m.IsNotDeleted,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates SoftDeleteModel from domain BaseEntity
func (m *SoftDeleteModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.IsNotDeleted = e.IsNotDeleted
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&ProductModel{},
		&TaxModel{},
		&SalesOrderModel{},
		&SalesOrderItemModel{},
		&StockMovementModel{},
		&OutboxEntryModel{},
	}
}
