package transaction

import (
	"context"

	"github.com/erp/ordercore/internal/domain/shared"
)

// OutboxAppender records domain events in the outbox of the active scope.
// Appended events commit or roll back with the rest of the operation.
type OutboxAppender interface {
	Append(ctx context.Context, repo shared.OutboxRepository, events ...shared.DomainEvent) error
}

// DiscardOutbox drops every event
type DiscardOutbox struct{}

// Append does nothing
func (DiscardOutbox) Append(context.Context, shared.OutboxRepository, ...shared.DomainEvent) error {
	return nil
}
