package models

import (
	"time"

	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovementModel is the persistence model for the append-only stock ledger
type StockMovementModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primaryKey"`
	ProductID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_movements_product,priority:1"`
	Delta         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	SourceType    inventory.SourceType `gorm:"type:varchar(50);not null;index:idx_stock_movements_source,priority:1"`
	SourceID      string               `gorm:"type:varchar(100);index:idx_stock_movements_source,priority:2"`
	Reason        string               `gorm:"type:varchar(500)"`
	OperatorID    *uuid.UUID           `gorm:"type:uuid"`
	OccurredAt    time.Time            `gorm:"not null;index:idx_stock_movements_product,priority:2"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() inventory.StockMovement {
	return inventory.StockMovement{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Delta:         m.Delta,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		SourceType:    m.SourceType,
		SourceID:      m.SourceID,
		Reason:        m.Reason,
		OperatorID:    m.OperatorID,
		OccurredAt:    m.OccurredAt,
	}
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:            s.ID,
		ProductID:     s.ProductID,
		Delta:         s.Delta,
		BalanceBefore: s.BalanceBefore,
		BalanceAfter:  s.BalanceAfter,
		SourceType:    s.SourceType,
		SourceID:      s.SourceID,
		Reason:        s.Reason,
		OperatorID:    s.OperatorID,
		OccurredAt:    s.OccurredAt,
	}
}
