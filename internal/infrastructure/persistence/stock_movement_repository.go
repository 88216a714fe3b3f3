package persistence

import (
	"context"

	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements inventory.StockMovementRepository using GORM.
// Rows are append-only.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a movement
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(models.StockMovementModelFromDomain(movement)).Error; err != nil {
		return shared.NewInfrastructureError("create stock movement", err)
	}
	return nil
}

// FindByProduct lists movements of a product, oldest first
func (r *GormStockMovementRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockMovement, error) {
	return r.find(ctx, r.db.Where("product_id = ?", productID))
}

// FindBySource lists movements recorded for a source document
func (r *GormStockMovementRepository) FindBySource(ctx context.Context, sourceType inventory.SourceType, sourceID string) ([]inventory.StockMovement, error) {
	return r.find(ctx, r.db.Where("source_type = ? AND source_id = ?", sourceType, sourceID))
}

func (r *GormStockMovementRepository) find(ctx context.Context, query *gorm.DB) ([]inventory.StockMovement, error) {
	var rows []models.StockMovementModel
	if err := query.WithContext(ctx).Order("occurred_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, shared.NewInfrastructureError("find stock movements", err)
	}
	out := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
