package persistence

import (
	"context"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/domain/trade"
	"github.com/erp/ordercore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSalesOrderRepository implements trade.SalesOrderRepository using GORM
type GormSalesOrderRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *gorm.DB) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

func orderNotFound(id uuid.UUID) string {
	return "Sales order " + id.String() + " not found"
}

// FindByID finds a live sales order by its ID
func (r *GormSalesOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.SalesOrder, error) {
	var model models.SalesOrderModel
	err := r.db.WithContext(ctx).Scopes(liveOnly).Where("id = ?", id).First(&model).Error
	if err != nil {
		return nil, translateError("find sales order", err, orderNotFound(id))
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a live sales order and holds a row lock until the transaction ends.
// Two transactions confirming the same order serialize here.
func (r *GormSalesOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.SalesOrder, error) {
	var model models.SalesOrderModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(liveOnly).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError("lock sales order", err, orderNotFound(id))
	}
	return model.ToDomain(), nil
}

// Update writes the caller-owned columns of a live order.
// Derived totals and creation columns are never touched here.
func (r *GormSalesOrderRepository) Update(ctx context.Context, order *trade.SalesOrder) error {
	result := r.db.WithContext(ctx).
		Model(&models.SalesOrderModel{}).
		Scopes(liveOnly).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"order_number":       order.OrderNumber,
			"order_status":       order.Status,
			"tax_id":             order.TaxID,
			"remark":             order.Remark,
			"updated_at":         order.UpdatedAt,
			"updated_by_user_id": order.UpdatedByUserID,
		})
	if result.Error != nil {
		return shared.NewInfrastructureError("update sales order", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(orderNotFound(order.ID))
	}
	return nil
}

// UpdateTotals writes the three derived amount columns
func (r *GormSalesOrderRepository) UpdateTotals(ctx context.Context, orderID uuid.UUID, totals trade.OrderTotals) error {
	result := r.db.WithContext(ctx).
		Model(&models.SalesOrderModel{}).
		Scopes(liveOnly).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"before_tax_amount": totals.BeforeTax,
			"tax_amount":        totals.TaxAmount,
			"after_tax_amount":  totals.AfterTax,
		})
	if result.Error != nil {
		return shared.NewInfrastructureError("update sales order totals", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(orderNotFound(orderID))
	}
	return nil
}

// GormSalesOrderItemRepository implements trade.SalesOrderItemRepository using GORM
type GormSalesOrderItemRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderItemRepository creates a new GormSalesOrderItemRepository
func NewGormSalesOrderItemRepository(db *gorm.DB) *GormSalesOrderItemRepository {
	return &GormSalesOrderItemRepository{db: db}
}

// FindActiveByOrder lists live items of an order in creation order
func (r *GormSalesOrderItemRepository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]trade.SalesOrderItem, error) {
	var rows []models.SalesOrderItemModel
	err := r.db.WithContext(ctx).
		Scopes(liveOnly).
		Where("sales_order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, shared.NewInfrastructureError("find sales order items", err)
	}
	items := make([]trade.SalesOrderItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// GormTaxRepository implements trade.TaxRepository using GORM
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// FindByID finds a live tax
func (r *GormTaxRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Tax, error) {
	var model models.TaxModel
	err := r.db.WithContext(ctx).Scopes(liveOnly).Where("id = ?", id).First(&model).Error
	if err != nil {
		return nil, translateError("find tax", err, "Tax "+id.String()+" not found")
	}
	return model.ToDomain(), nil
}

var (
	_ trade.SalesOrderRepository     = (*GormSalesOrderRepository)(nil)
	_ trade.SalesOrderItemRepository = (*GormSalesOrderItemRepository)(nil)
	_ trade.TaxRepository            = (*GormTaxRepository)(nil)
)
