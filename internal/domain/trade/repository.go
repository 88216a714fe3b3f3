package trade

import (
	"context"

	"github.com/google/uuid"
)

// SalesOrderRepository is the narrow order store used by the state machine and
// the totals recalculation. Only rows with the soft-delete flag clear are visible.
type SalesOrderRepository interface {
	// FindByID finds a live sales order
	FindByID(ctx context.Context, id uuid.UUID) (*SalesOrder, error)

	// FindByIDForUpdate finds a live sales order and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*SalesOrder, error)

	// Update persists the caller-supplied columns of an existing order. Derived totals are left alone.
	Update(ctx context.Context, order *SalesOrder) error

	// UpdateTotals persists only the derived totals
	UpdateTotals(ctx context.Context, orderID uuid.UUID, totals OrderTotals) error
}

// SalesOrderItemRepository reads order lines
type SalesOrderItemRepository interface {
	// FindActiveByOrder lists live items of an order
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]SalesOrderItem, error)
}

// TaxRepository reads tax rates
type TaxRepository interface {
	// FindByID finds a live tax
	FindByID(ctx context.Context, id uuid.UUID) (*Tax, error)
}
