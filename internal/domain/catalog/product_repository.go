package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the narrow store the inventory ledger needs.
// Implementations only see rows whose soft-delete flag is clear.
type ProductRepository interface {
	// FindByID finds a live product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate finds a live product and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	// SaveQuantity persists the stock level and audit columns of a product
	SaveQuantity(ctx context.Context, product *Product) error
}
