package testutil

import (
	"strconv"
	"testing"
	"time"

	"github.com/erp/ordercore/internal/domain/catalog"
	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/erp/ordercore/internal/domain/trade"
	"github.com/erp/ordercore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixtures seeds rows directly through the persistence models
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

// NewFixtures creates a fixture builder for db
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) next() int {
	f.n++
	return f.n
}

// Product inserts a live product with the given stock level
func (f *Fixtures) Product(code string, physical bool, qty int64) *catalog.Product {
	f.t.Helper()
	p, err := catalog.NewProduct(code, "Product "+code, physical)
	require.NoError(f.t, err)
	p.Quantity = decimal.NewFromInt(qty)
	require.NoError(f.t, f.db.Create(models.ProductModelFromDomain(p)).Error)
	return p
}

// Tax inserts a tax with the given percentage
func (f *Fixtures) Tax(pct string, live bool) *trade.Tax {
	f.t.Helper()
	now := time.Now()
	m := &models.TaxModel{
		ID:           uuid.New(),
		Name:         "VAT " + pct,
		Percentage:   decimal.RequireFromString(pct),
		IsNotDeleted: live,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(f.t, f.db.Create(m).Error)
	return m.ToDomain()
}

// Order inserts a live draft order
func (f *Fixtures) Order(taxID *uuid.UUID) *trade.SalesOrder {
	f.t.Helper()
	o, err := trade.NewSalesOrder(fmtOrderNumber(f.next()), taxID)
	require.NoError(f.t, err)
	require.NoError(f.t, f.db.Create(models.SalesOrderModelFromDomain(o)).Error)
	return o
}

// Item inserts a line item; qty may be nil
func (f *Fixtures) Item(orderID, productID uuid.UUID, qty *int64, total string, live bool) trade.SalesOrderItem {
	f.t.Helper()
	// spread creation times so FindActiveByOrder returns insertion order
	created := time.Now().Add(time.Duration(f.next()) * time.Millisecond)
	item := trade.SalesOrderItem{
		ID:           uuid.New(),
		SalesOrderID: orderID,
		ProductID:    productID,
		Total:        decimal.RequireFromString(total),
		IsNotDeleted: live,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if qty != nil {
		q := decimal.NewFromInt(*qty)
		item.Quantity = &q
	}
	var m models.SalesOrderItemModel
	m.FromDomain(item)
	require.NoError(f.t, f.db.Create(&m).Error)
	return item
}

// SoftDelete clears is_not_deleted on any row of model's table
func (f *Fixtures) SoftDelete(model any, id uuid.UUID) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(model).Where("id = ?", id).Update("is_not_deleted", false).Error)
}

// ProductQuantity reads the stored stock level, ignoring soft-delete
func (f *Fixtures) ProductQuantity(id uuid.UUID) decimal.Decimal {
	f.t.Helper()
	var m models.ProductModel
	require.NoError(f.t, f.db.Where("id = ?", id).First(&m).Error)
	return m.Quantity
}

// LoadOrder reads an order row, ignoring soft-delete
func (f *Fixtures) LoadOrder(id uuid.UUID) *trade.SalesOrder {
	f.t.Helper()
	var m models.SalesOrderModel
	require.NoError(f.t, f.db.Where("id = ?", id).First(&m).Error)
	return m.ToDomain()
}

// Movements lists the stock movements recorded for a product
func (f *Fixtures) Movements(productID uuid.UUID) []inventory.StockMovement {
	f.t.Helper()
	var rows []models.StockMovementModel
	require.NoError(f.t, f.db.Where("product_id = ?", productID).Order("occurred_at ASC").Find(&rows).Error)
	out := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// OutboxEventTypes lists the event types in the outbox, oldest first
func (f *Fixtures) OutboxEventTypes() []string {
	f.t.Helper()
	var types []string
	require.NoError(f.t, f.db.Model(&models.OutboxEntryModel{}).Order("created_at ASC").Pluck("event_type", &types).Error)
	return types
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 {
	return &v
}

func fmtOrderNumber(n int) string {
	return "SO-" + strconv.Itoa(1000+n)
}
