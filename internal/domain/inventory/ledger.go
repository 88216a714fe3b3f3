package inventory

import (
	"context"

	"github.com/erp/ordercore/internal/domain/catalog"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantityPlaces is how many decimal places stock quantities keep
const QuantityPlaces = 4

// Adjustment describes one signed quantity change.
// A negative Delta consumes stock, a positive one restocks or reverses.
type Adjustment struct {
	ProductID  uuid.UUID
	Delta      decimal.Decimal
	SourceType SourceType
	SourceID   string
	Reason     string
}

// Ledger owns the authoritative stock level of products.
// It never opens or commits a transaction; the repositories it is built with
// must already be bound to the caller's atomic scope.
type Ledger struct {
	products  catalog.ProductRepository
	movements StockMovementRepository
}

// NewLedger creates a ledger over transaction-scoped repositories
func NewLedger(products catalog.ProductRepository, movements StockMovementRepository) *Ledger {
	return &Ledger{products: products, movements: movements}
}

// AdjustQuantity locks the product row, applies the delta and records the movement.
// It returns nil movement when the delta is zero; the product is still checked
// for existence and physicality so a zero-quantity line fails like any other.
// A delta finer than QuantityPlaces is rejected rather than rounded by the store.
func (l *Ledger) AdjustQuantity(ctx context.Context, adj Adjustment, audit shared.AuditContext) (*StockMovement, error) {
	if !adj.Delta.Equal(adj.Delta.Truncate(QuantityPlaces)) {
		return nil, shared.ErrInvalidInput.WithMessage("Quantity delta %s has more than %d decimal places", adj.Delta.String(), QuantityPlaces)
	}

	product, err := l.products.FindByIDForUpdate(ctx, adj.ProductID)
	if err != nil {
		if shared.KindOf(err) == shared.KindNotFound {
			return nil, shared.NewNotFoundError("Product " + adj.ProductID.String() + " not found")
		}
		return nil, err
	}

	before, err := product.AdjustQuantity(adj.Delta, audit)
	if err != nil {
		return nil, err
	}
	if adj.Delta.IsZero() {
		return nil, nil
	}

	if err := l.products.SaveQuantity(ctx, product); err != nil {
		return nil, err
	}

	movement, err := NewStockMovement(product.ID, adj.Delta, before, adj.SourceType, adj.SourceID, audit)
	if err != nil {
		return nil, err
	}
	movement.WithReason(adj.Reason)
	if err := l.movements.Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}
