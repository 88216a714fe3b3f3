package trade

import (
	"testing"
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTransition(t *testing.T) {
	tests := []struct {
		persisted OrderStatus
		proposed  OrderStatus
		want      Transition
	}{
		{OrderStatusDraft, OrderStatusConfirmed, TransitionConfirmation},
		{OrderStatusCancelled, OrderStatusConfirmed, TransitionConfirmation},
		{OrderStatusShipped, OrderStatusConfirmed, TransitionConfirmation},
		{OrderStatusConfirmed, OrderStatusConfirmed, TransitionNone},
		{OrderStatusDraft, OrderStatusDraft, TransitionNone},
		{OrderStatusConfirmed, OrderStatusCancelled, TransitionNone},
		{OrderStatusConfirmed, OrderStatusShipped, TransitionNone},
		{OrderStatusConfirmed, OrderStatusDraft, TransitionNone},
	}
	for _, tt := range tests {
		t.Run(tt.persisted.String()+"->"+tt.proposed.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTransition(tt.persisted, tt.proposed))
		})
	}
}

func TestNewSalesOrder(t *testing.T) {
	t.Run("creates draft order", func(t *testing.T) {
		taxID := uuid.New()
		order, err := NewSalesOrder("SO-1", &taxID)
		require.NoError(t, err)

		assert.Equal(t, OrderStatusDraft, order.Status)
		assert.Equal(t, &taxID, order.TaxID)
		assert.True(t, order.IsNotDeleted)
		assert.True(t, order.AfterTaxAmount.IsZero())
	})

	t.Run("fails with empty number", func(t *testing.T) {
		_, err := NewSalesOrder("", nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestSalesOrder_Validate(t *testing.T) {
	order, err := NewSalesOrder("SO-2", nil)
	require.NoError(t, err)
	require.NoError(t, order.Validate())

	order.Status = OrderStatus("ON_HOLD")
	assert.ErrorIs(t, order.Validate(), shared.ErrInvalidInput)

	order.Status = OrderStatusDraft
	order.ID = uuid.Nil
	assert.ErrorIs(t, order.Validate(), shared.ErrInvalidInput)
}

func TestSalesOrder_StampUpdate(t *testing.T) {
	order, err := NewSalesOrder("SO-3", nil)
	require.NoError(t, err)
	userID := uuid.New()
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	order.StampUpdate(shared.AuditContext{UserID: &userID, At: at})

	assert.Equal(t, &userID, order.UpdatedByUserID)
	assert.Equal(t, at, order.UpdatedAt)
}

func TestSalesOrderItem_EffectiveQuantity(t *testing.T) {
	q := decimal.NewFromInt(4)
	assert.True(t, SalesOrderItem{Quantity: &q}.EffectiveQuantity().Equal(q))
	assert.True(t, SalesOrderItem{}.EffectiveQuantity().IsZero())
}

func TestNewSalesOrderConfirmedEvent(t *testing.T) {
	order, err := NewSalesOrder("SO-4", nil)
	require.NoError(t, err)
	userID := uuid.New()
	q := decimal.NewFromInt(3)
	items := []SalesOrderItem{
		{ID: uuid.New(), SalesOrderID: order.ID, ProductID: uuid.New(), Quantity: &q, IsNotDeleted: true},
		{ID: uuid.New(), SalesOrderID: order.ID, ProductID: uuid.New(), IsNotDeleted: true},
	}

	event := NewSalesOrderConfirmedEvent(order, OrderStatusDraft, items, shared.NewAuditContext(userID))

	assert.Equal(t, EventTypeSalesOrderConfirmed, event.EventType())
	assert.Equal(t, AggregateTypeSalesOrder, event.AggregateType())
	assert.Equal(t, order.ID, event.AggregateID())
	assert.Equal(t, OrderStatusDraft, event.PreviousStatus)
	require.Len(t, event.Lines, 2)
	assert.True(t, event.Lines[0].Quantity.Equal(q))
	assert.True(t, event.Lines[1].Quantity.IsZero())
	assert.Equal(t, userID.String(), event.ConfirmedBy)
}
