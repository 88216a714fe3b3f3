// Package event implements the transactional outbox.
//
// Services append serialized domain events to outbox_entries inside the same
// transaction as the state change (OutboxWriter). The OutboxRelay later claims
// pending rows, publishes them to Kafka and records the delivery outcome.
// Delivery is at least once; consumers and the relay's idempotency store drop
// duplicates by event id.
package event
