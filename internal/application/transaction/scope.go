// Package transaction defines the atomic unit every consistency operation runs in.
//
// A Scope hands the operation a set of repositories bound to one database
// transaction. Whatever the operation writes through them commits together or
// not at all. The Scope carries the active transaction in the context it passes
// to the operation, so a nested RunAtomic with that context joins the outer unit
// instead of opening a second one.
package transaction

import (
	"context"

	"github.com/erp/ordercore/internal/domain/catalog"
	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/domain/trade"
)

// Scope runs operations atomically.
// If fn returns an error the transaction is rolled back and the error is returned unchanged.
// Begin and commit failures are returned as *shared.InfrastructureError.
// A context cancelled before commit rolls the transaction back.
type Scope interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Repositories exposes the stores an atomic operation may touch.
// All of them share the same underlying transaction.
type Repositories interface {
	Products() catalog.ProductRepository
	StockMovements() inventory.StockMovementRepository
	SalesOrders() trade.SalesOrderRepository
	SalesOrderItems() trade.SalesOrderItemRepository
	Taxes() trade.TaxRepository
	Outbox() shared.OutboxRepository
}

// Ledger builds an inventory ledger over the scoped repositories
func Ledger(repos Repositories) *inventory.Ledger {
	return inventory.NewLedger(repos.Products(), repos.StockMovements())
}

// NoOpScope runs operations directly against fixed repositories without a transaction.
// Used by unit tests with mocked repositories.
type NoOpScope struct {
	products        catalog.ProductRepository
	stockMovements  inventory.StockMovementRepository
	salesOrders     trade.SalesOrderRepository
	salesOrderItems trade.SalesOrderItemRepository
	taxes           trade.TaxRepository
	outbox          shared.OutboxRepository
}

// NoOpRepositories lists the repositories a NoOpScope hands out
type NoOpRepositories struct {
	Products        catalog.ProductRepository
	StockMovements  inventory.StockMovementRepository
	SalesOrders     trade.SalesOrderRepository
	SalesOrderItems trade.SalesOrderItemRepository
	Taxes           trade.TaxRepository
	Outbox          shared.OutboxRepository
}

// NewNoOpScope creates a NoOpScope with the given repositories
func NewNoOpScope(r NoOpRepositories) *NoOpScope {
	return &NoOpScope{
		products:        r.Products,
		stockMovements:  r.StockMovements,
		salesOrders:     r.SalesOrders,
		salesOrderItems: r.SalesOrderItems,
		taxes:           r.Taxes,
		outbox:          r.Outbox,
	}
}

// RunAtomic calls fn directly. Errors are returned unchanged.
func (s *NoOpScope) RunAtomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, s)
}

// Products returns the product repository
func (s *NoOpScope) Products() catalog.ProductRepository { return s.products }

// StockMovements returns the stock movement repository
func (s *NoOpScope) StockMovements() inventory.StockMovementRepository { return s.stockMovements }

// SalesOrders returns the sales order repository
func (s *NoOpScope) SalesOrders() trade.SalesOrderRepository { return s.salesOrders }

// SalesOrderItems returns the sales order item repository
func (s *NoOpScope) SalesOrderItems() trade.SalesOrderItemRepository { return s.salesOrderItems }

// Taxes returns the tax repository
func (s *NoOpScope) Taxes() trade.TaxRepository { return s.taxes }

// Outbox returns the outbox repository
func (s *NoOpScope) Outbox() shared.OutboxRepository { return s.outbox }

var (
	_ Scope        = (*NoOpScope)(nil)
	_ Repositories = (*NoOpScope)(nil)
)
