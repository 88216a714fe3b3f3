package trade

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OrderTotals holds the three derived amounts of an order
type OrderTotals struct {
	BeforeTax decimal.Decimal
	TaxAmount decimal.Decimal
	AfterTax  decimal.Decimal
}

// Equal compares the totals by value
func (t OrderTotals) Equal(other OrderTotals) bool {
	return t.BeforeTax.Equal(other.BeforeTax) &&
		t.TaxAmount.Equal(other.TaxAmount) &&
		t.AfterTax.Equal(other.AfterTax)
}

// Recalculate computes the totals of order from its live items and tax.
// Items that are soft-deleted or belong to another order are skipped. A nil or
// soft-deleted tax counts as no tax. No rounding is applied.
// The second result is false when order is nil or soft-deleted; nothing should
// be written in that case.
func Recalculate(order *SalesOrder, items []SalesOrderItem, tax *Tax) (OrderTotals, bool) {
	if order == nil || !order.IsNotDeleted {
		return OrderTotals{}, false
	}

	beforeTax := decimal.Zero
	for _, item := range items {
		if !item.BelongsTo(order.ID) {
			continue
		}
		beforeTax = beforeTax.Add(item.Total)
	}

	taxAmount := decimal.Zero
	if tax != nil && tax.IsNotDeleted {
		taxAmount = tax.Percentage.Div(hundred).Mul(beforeTax)
	}

	return OrderTotals{
		BeforeTax: beforeTax,
		TaxAmount: taxAmount,
		AfterTax:  beforeTax.Add(taxAmount),
	}, true
}
