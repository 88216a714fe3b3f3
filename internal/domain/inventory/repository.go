package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockMovementRepository is append-only
type StockMovementRepository interface {
	// Create appends a movement record
	Create(ctx context.Context, movement *StockMovement) error

	// FindByProduct lists movements of a product, oldest first
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]StockMovement, error)

	// FindBySource lists movements recorded for a source document
	FindBySource(ctx context.Context, sourceType SourceType, sourceID string) ([]StockMovement, error)
}
