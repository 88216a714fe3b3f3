package event

import (
	"context"

	"github.com/erp/ordercore/internal/domain/shared"
)

// OutboxWriter appends domain events to the outbox through a transaction-scoped repository
type OutboxWriter struct {
	serializer *EventSerializer
	maxRetries int
}

// OutboxWriterOption configures an OutboxWriter
type OutboxWriterOption func(*OutboxWriter)

// WithMaxRetries sets how many failed publishes an entry survives before it is dead-lettered
func WithMaxRetries(n int) OutboxWriterOption {
	return func(w *OutboxWriter) {
		w.maxRetries = n
	}
}

// NewOutboxWriter creates a new outbox writer
func NewOutboxWriter(serializer *EventSerializer, opts ...OutboxWriterOption) *OutboxWriter {
	w := &OutboxWriter{serializer: serializer}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Append serializes events and saves them as pending entries.
// repo must belong to the caller's atomic scope so the entries commit with the change.
func (w *OutboxWriter) Append(ctx context.Context, repo shared.OutboxRepository, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := w.serializer.Serialize(event)
		if err != nil {
			return shared.NewInfrastructureError("serialize event", err)
		}
		entry := shared.NewOutboxEntry(event, payload)
		if w.maxRetries > 0 {
			entry.MaxRetries = w.maxRetries
		}
		entries = append(entries, entry)
	}
	return repo.Save(ctx, entries...)
}
