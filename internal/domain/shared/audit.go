package shared

import (
	"time"

	"github.com/google/uuid"
)

// AuditContext carries the identity of whoever performs a mutation.
// It is passed explicitly to update operations.
type AuditContext struct {
	UserID    *uuid.UUID
	RequestID string
	// At overrides the stamping time; zero means "now"
	At time.Time
}

// NewAuditContext creates an audit context for the given user
func NewAuditContext(userID uuid.UUID) AuditContext {
	return AuditContext{UserID: &userID}
}

// Timestamp returns the time to stamp on the mutated row
func (a AuditContext) Timestamp() time.Time {
	if a.At.IsZero() {
		return time.Now().UTC()
	}
	return a.At.UTC()
}

// UserIDString returns the user id or an empty string for system actions
func (a AuditContext) UserIDString() string {
	if a.UserID == nil {
		return ""
	}
	return a.UserID.String()
}
