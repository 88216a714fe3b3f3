package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities.
// Rows are never removed; IsNotDeleted is cleared instead.
type BaseEntity struct {
	ID           uuid.UUID
	IsNotDeleted bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// IsActive reports whether the entity has not been soft-deleted
func (e *BaseEntity) IsActive() bool {
	return e.IsNotDeleted
}

// NewBaseEntity creates a new live base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:           uuid.New(),
		IsNotDeleted: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
