package persistence

import (
	"context"

	"github.com/erp/ordercore/internal/domain/catalog"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a live product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	err := r.db.WithContext(ctx).Scopes(liveOnly).Where("id = ?", id).First(&model).Error
	if err != nil {
		return nil, translateError("find product", err, "Product "+id.String()+" not found")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a live product and holds a row lock until the transaction ends
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(liveOnly).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError("lock product", err, "Product "+id.String()+" not found")
	}
	return model.ToDomain(), nil
}

// SaveQuantity writes the stock level and audit columns of a live product
func (r *GormProductRepository) SaveQuantity(ctx context.Context, product *catalog.Product) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Scopes(liveOnly).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"quantity":           product.Quantity,
			"updated_at":         product.UpdatedAt,
			"updated_by_user_id": product.UpdatedByUserID,
		})
	if result.Error != nil {
		return shared.NewInfrastructureError("save product quantity", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Product " + product.ID.String() + " not found")
	}
	return nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
