package catalog

import (
	"strings"
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. Only physical products carry a stock level.
type Product struct {
	shared.BaseEntity
	Code            string
	Name            string
	Physical        bool
	Quantity        decimal.Decimal
	UpdatedByUserID *uuid.UUID
}

// NewProduct creates a new live product with zero stock
func NewProduct(code, name string, physical bool) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Product code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.ErrInvalidInput.WithMessage("Product code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Product name cannot be empty")
	}
	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Code:       strings.ToUpper(code),
		Name:       name,
		Physical:   physical,
		Quantity:   decimal.Zero,
	}, nil
}

// AdjustQuantity applies a signed delta to the stock level and returns the
// balance before the change. On error the product is left untouched.
func (p *Product) AdjustQuantity(delta decimal.Decimal, audit shared.AuditContext) (decimal.Decimal, error) {
	before := p.Quantity
	if !p.Physical {
		return before, shared.ErrNonPhysicalProduct.WithMessage(
			"Product %s is not physical; its quantity cannot be changed", p.Code)
	}
	after := before.Add(delta)
	if after.IsNegative() {
		return before, shared.ErrNegativeStock.WithMessage(
			"Updating quantity of product %s resulted in negative stock level (%s + %s = %s)",
			p.Code, before.String(), delta.String(), after.String())
	}
	p.Quantity = after
	p.stamp(audit.UserID, audit.Timestamp())
	return before, nil
}

func (p *Product) stamp(userID *uuid.UUID, at time.Time) {
	p.UpdatedByUserID = userID
	p.UpdatedAt = at
}
