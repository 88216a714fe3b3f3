package trade_test

import (
	"context"
	"sync"
	"testing"

	apptrade "github.com/erp/ordercore/internal/application/trade"
	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/domain/trade"
	"github.com/erp/ordercore/internal/infrastructure/event"
	"github.com/erp/ordercore/internal/infrastructure/persistence"
	"github.com/erp/ordercore/internal/infrastructure/persistence/models"
	"github.com/erp/ordercore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteService(t *testing.T) (*apptrade.SalesOrderService, *testutil.Fixtures) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	svc := apptrade.NewSalesOrderService(
		persistence.NewGormTransactionScope(db),
		apptrade.WithOutbox(event.NewOutboxWriter(event.NewDefaultSerializer())),
	)
	return svc, testutil.NewFixtures(t, db)
}

func confirmed(order *trade.SalesOrder) *trade.SalesOrder {
	o := *order
	o.Status = trade.OrderStatusConfirmed
	return &o
}

func TestUpdateOrder_ConfirmationIsAllOrNothing_SQLite(t *testing.T) {
	svc, fx := newSQLiteService(t)
	ctx := context.Background()

	a := fx.Product("A", true, 10)
	b := fx.Product("B", true, 1)
	order := fx.Order(nil)
	fx.Item(order.ID, a.ID, testutil.Int64(3), "30", true)
	fx.Item(order.ID, b.ID, testutil.Int64(2), "20", true)

	err := svc.UpdateOrder(ctx, confirmed(order), shared.NewAuditContext(uuid.New()))

	require.ErrorIs(t, err, shared.ErrNegativeStock)
	assert.Equal(t, "10", fx.ProductQuantity(a.ID).String())
	assert.Equal(t, "1", fx.ProductQuantity(b.ID).String())
	assert.Equal(t, trade.OrderStatusDraft, fx.LoadOrder(order.ID).Status)
	assert.Empty(t, fx.Movements(a.ID))
	assert.Empty(t, fx.OutboxEventTypes())
}

func TestUpdateOrder_ConfirmOnce_SQLite(t *testing.T) {
	svc, fx := newSQLiteService(t)
	ctx := context.Background()
	userID := uuid.New()
	audit := shared.NewAuditContext(userID)

	a := fx.Product("A", true, 10)
	b := fx.Product("B", true, 5)
	order := fx.Order(nil)
	fx.Item(order.ID, a.ID, testutil.Int64(3), "30", true)
	fx.Item(order.ID, b.ID, testutil.Int64(2), "20", true)
	deleted := fx.Item(order.ID, b.ID, testutil.Int64(4), "40", false)
	require.False(t, deleted.IsNotDeleted)

	require.NoError(t, svc.UpdateOrder(ctx, confirmed(order), audit))

	assert.Equal(t, "7", fx.ProductQuantity(a.ID).String())
	assert.Equal(t, "3", fx.ProductQuantity(b.ID).String())
	stored := fx.LoadOrder(order.ID)
	assert.Equal(t, trade.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.UpdatedByUserID)
	assert.Equal(t, userID, *stored.UpdatedByUserID)

	movements := fx.Movements(a.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.SourceTypeSalesOrderConfirmation, movements[0].SourceType)
	assert.Equal(t, order.ID.String(), movements[0].SourceID)
	assert.Equal(t, []string{trade.EventTypeSalesOrderConfirmed}, fx.OutboxEventTypes())

	t.Run("confirming again deducts nothing", func(t *testing.T) {
		again := fx.LoadOrder(order.ID)
		again.Remark = "re-sent by client"

		require.NoError(t, svc.UpdateOrder(ctx, again, audit))

		assert.Equal(t, "7", fx.ProductQuantity(a.ID).String())
		assert.Equal(t, "3", fx.ProductQuantity(b.ID).String())
		assert.Len(t, fx.OutboxEventTypes(), 1)
		assert.Equal(t, "re-sent by client", fx.LoadOrder(order.ID).Remark)
	})

	t.Run("shipping has no inventory effect", func(t *testing.T) {
		shipped := fx.LoadOrder(order.ID)
		shipped.Status = trade.OrderStatusShipped

		require.NoError(t, svc.UpdateOrder(ctx, shipped, audit))

		assert.Equal(t, "7", fx.ProductQuantity(a.ID).String())
		assert.Equal(t, trade.OrderStatusShipped, fx.LoadOrder(order.ID).Status)
	})
}

func TestUpdateOrder_ConcurrentConfirmationDeductsOnce_SQLite(t *testing.T) {
	svc, fx := newSQLiteService(t)
	ctx := context.Background()

	a := fx.Product("A", true, 100)
	order := fx.Order(nil)
	fx.Item(order.ID, a.ID, testutil.Int64(7), "70", true)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.UpdateOrder(ctx, confirmed(order), shared.NewAuditContext(uuid.New()))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, "93", fx.ProductQuantity(a.ID).String())
	assert.Len(t, fx.Movements(a.ID), 1)
	assert.Equal(t, []string{trade.EventTypeSalesOrderConfirmed}, fx.OutboxEventTypes())
}

func TestUpdateOrder_ConfirmationRecomputesTotals_SQLite(t *testing.T) {
	svc, fx := newSQLiteService(t)
	ctx := context.Background()

	tax := fx.Tax("10", true)
	order := fx.Order(&tax.ID)
	a := fx.Product("A", true, 10)
	fx.Item(order.ID, a.ID, testutil.Int64(1), "100", true)
	fx.Item(order.ID, a.ID, testutil.Int64(5), "999", false)
	require.True(t, fx.LoadOrder(order.ID).AfterTaxAmount.IsZero())

	require.NoError(t, svc.UpdateOrder(ctx, confirmed(order), shared.NewAuditContext(uuid.New())))

	stored := fx.LoadOrder(order.ID)
	assert.Equal(t, trade.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, "9", fx.ProductQuantity(a.ID).String())
	assert.True(t, stored.BeforeTaxAmount.Equal(decimal.NewFromInt(100)), stored.BeforeTaxAmount.String())
	assert.True(t, stored.TaxAmount.Equal(decimal.NewFromInt(10)), stored.TaxAmount.String())
	assert.True(t, stored.AfterTaxAmount.Equal(decimal.NewFromInt(110)), stored.AfterTaxAmount.String())
}

func TestUpdateOrder_FailedConfirmationLeavesTotals_SQLite(t *testing.T) {
	svc, fx := newSQLiteService(t)
	ctx := context.Background()

	order := fx.Order(nil)
	a := fx.Product("A", true, 1)
	fx.Item(order.ID, a.ID, testutil.Int64(2), "40", true)

	err := svc.UpdateOrder(ctx, confirmed(order), shared.NewAuditContext(uuid.New()))

	require.ErrorIs(t, err, shared.ErrNegativeStock)
	assert.True(t, fx.LoadOrder(order.ID).BeforeTaxAmount.IsZero())
}

func TestUpdateOrder_KeepsStoredTotals_SQLite(t *testing.T) {
	svc, fx := newSQLiteService(t)
	ctx := context.Background()

	order := fx.Order(nil)
	fx.Item(order.ID, fx.Product("A", true, 1).ID, testutil.Int64(1), "25", true)
	updated, err := svc.RecalculateOrderTotals(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, updated)

	edited := fx.LoadOrder(order.ID)
	edited.AfterTaxAmount = decimal.NewFromInt(999)
	edited.Remark = "gift wrap"
	require.NoError(t, svc.UpdateOrder(ctx, edited, shared.AuditContext{}))

	stored := fx.LoadOrder(order.ID)
	assert.True(t, stored.AfterTaxAmount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "gift wrap", stored.Remark)
}

func TestRecalculateOrderTotals_SQLite(t *testing.T) {
	svc, fx := newSQLiteService(t)
	ctx := context.Background()

	t.Run("items totalling 100 at 10 percent", func(t *testing.T) {
		tax := fx.Tax("10", true)
		order := fx.Order(&tax.ID)
		p := fx.Product("A", true, 0)
		fx.Item(order.ID, p.ID, testutil.Int64(1), "60.00", true)
		fx.Item(order.ID, p.ID, testutil.Int64(1), "40.00", true)
		fx.Item(order.ID, p.ID, testutil.Int64(1), "500.00", false)

		updated, err := svc.RecalculateOrderTotals(ctx, order.ID)

		require.NoError(t, err)
		assert.True(t, updated)
		stored := fx.LoadOrder(order.ID)
		assert.True(t, stored.BeforeTaxAmount.Equal(decimal.NewFromInt(100)), stored.BeforeTaxAmount.String())
		assert.True(t, stored.TaxAmount.Equal(decimal.NewFromInt(10)), stored.TaxAmount.String())
		assert.True(t, stored.AfterTaxAmount.Equal(decimal.NewFromInt(110)), stored.AfterTaxAmount.String())
	})

	t.Run("soft-deleted tax counts as no tax", func(t *testing.T) {
		tax := fx.Tax("20", true)
		fx.SoftDelete(&models.TaxModel{}, tax.ID)
		order := fx.Order(&tax.ID)
		fx.Item(order.ID, fx.Product("B", true, 0).ID, nil, "80", true)

		updated, err := svc.RecalculateOrderTotals(ctx, order.ID)

		require.NoError(t, err)
		assert.True(t, updated)
		stored := fx.LoadOrder(order.ID)
		assert.True(t, stored.TaxAmount.IsZero())
		assert.True(t, stored.AfterTaxAmount.Equal(stored.BeforeTaxAmount.Add(stored.TaxAmount)))
	})

	t.Run("soft-deleted order reports nothing updated", func(t *testing.T) {
		order := fx.Order(nil)
		fx.Item(order.ID, fx.Product("C", true, 0).ID, testutil.Int64(1), "10", true)
		fx.SoftDelete(&models.SalesOrderModel{}, order.ID)

		updated, err := svc.RecalculateOrderTotals(ctx, order.ID)

		require.NoError(t, err)
		assert.False(t, updated)
		assert.True(t, fx.LoadOrder(order.ID).BeforeTaxAmount.IsZero())
	})

	t.Run("unknown order reports nothing updated", func(t *testing.T) {
		updated, err := svc.RecalculateOrderTotals(ctx, uuid.New())

		require.NoError(t, err)
		assert.False(t, updated)
	})
}
