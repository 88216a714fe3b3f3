package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is where an entry sits on its way to the broker
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	maxBackoff         = 10 * time.Minute
)

// ErrOutboxNotClaimable is returned when a relay tries to claim an entry someone else holds or has finished
var ErrOutboxNotClaimable = ErrInvalidState.WithMessage("Only pending or failed outbox entries can be claimed")

// claimable lists the states a relay may move to PROCESSING
var claimable = map[OutboxStatus]bool{
	OutboxStatusPending: true,
	OutboxStatusFailed:  true,
}

// OutboxEntry is a stock or order event committed in the same transaction as
// the rows it describes. The relay publishes it later, keyed by aggregate.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an encoded event as a pending entry
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// PartitionKey keeps every event of one product or order on the same partition, in commit order
func (e *OutboxEntry) PartitionKey() []byte {
	return []byte(e.AggregateID.String())
}

// CanRetry reports whether a failed entry has attempts left
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// IsDead reports whether the entry exhausted its attempts
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// MarkProcessing claims the entry for one delivery attempt
func (e *OutboxEntry) MarkProcessing() error {
	if !claimable[e.Status] {
		return ErrOutboxNotClaimable
	}
	e.touch(OutboxStatusProcessing)
	return nil
}

// Release hands a claimed entry back to the queue without spending an attempt.
// The relay uses it when it is stopped mid-publish.
func (e *OutboxEntry) Release() error {
	if e.Status != OutboxStatusProcessing {
		return ErrInvalidState.WithMessage("Only processing outbox entries can be released")
	}
	e.touch(OutboxStatusPending)
	e.NextRetryAt = nil
	return nil
}

// MarkSent records a successful publish
func (e *OutboxEntry) MarkSent() {
	e.touch(OutboxStatusSent)
	processed := e.UpdatedAt
	e.ProcessedAt = &processed
}

// MarkFailed records a failed publish. The entry is rescheduled with exponential
// backoff until RetryCount reaches MaxRetries, then dead-lettered.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg

	if e.RetryCount >= e.MaxRetries {
		e.touch(OutboxStatusDead)
		e.NextRetryAt = nil
		return
	}
	e.touch(OutboxStatusFailed)
	next := e.UpdatedAt.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

func (e *OutboxEntry) touch(status OutboxStatus) {
	e.Status = status
	e.UpdatedAt = time.Now()
}

// RetryBackoff is the wait after the given number of failures: 1s, 2s, 4s and so on, capped at ten minutes
func RetryBackoff(retryCount int) time.Duration {
	backoff := DefaultBaseBackoff
	for i := 1; i < retryCount; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// OutboxRepository stores outbox entries. Save runs on the caller's transaction;
// the other methods are used by the relay.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending returns up to limit pending entries, oldest first
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries whose next attempt is due before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing claims the given entries and returns those this caller won
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// ReleaseExpiredClaims returns PROCESSING entries last touched before claimedBefore
	// to PENDING, so a claim held by a relay that died is picked up again
	ReleaseExpiredClaims(ctx context.Context, claimedBefore time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
