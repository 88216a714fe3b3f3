package persistence

import (
	"errors"

	"github.com/erp/ordercore/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps gorm.ErrRecordNotFound to a NOT_FOUND domain error and
// wraps every other driver error as an infrastructure failure.
func translateError(op string, err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(notFoundMsg)
	}
	return shared.NewInfrastructureError(op, err)
}

// liveOnly restricts a query to rows that have not been soft-deleted
func liveOnly(db *gorm.DB) *gorm.DB {
	return db.Where("is_not_deleted = ?", true)
}
