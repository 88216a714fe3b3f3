package event

import (
	"context"
	"sync"
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publish outcomes reported to metrics
const (
	OutcomeSent      = "sent"
	OutcomeFailed    = "failed"
	OutcomeDead      = "dead"
	OutcomeDuplicate = "duplicate"
)

// RelayConfig holds configuration for the outbox relay
type RelayConfig struct {
	BatchSize      int
	PollInterval   time.Duration
	PublishTimeout time.Duration
	IdempotencyTTL time.Duration
	// ClaimLease is how long an entry may sit in PROCESSING before another relay takes it back
	ClaimLease time.Duration
}

// DefaultRelayConfig returns default configuration
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:      100,
		PollInterval:   5 * time.Second,
		PublishTimeout: 10 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
		ClaimLease:     5 * time.Minute,
	}
}

// OutboxRelay moves committed outbox entries to the broker in the background
type OutboxRelay struct {
	repo       shared.OutboxRepository
	publisher  Publisher
	serializer *EventSerializer
	store      shared.IdempotencyStore
	metrics    *telemetry.ConsistencyMetrics
	config     RelayConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RelayOption configures an OutboxRelay
type RelayOption func(*OutboxRelay)

// WithIdempotencyStore skips entries whose event id was already published
func WithIdempotencyStore(store shared.IdempotencyStore) RelayOption {
	return func(r *OutboxRelay) {
		r.store = store
	}
}

// WithRelayMetrics records publish outcomes
func WithRelayMetrics(m *telemetry.ConsistencyMetrics) RelayOption {
	return func(r *OutboxRelay) {
		r.metrics = m
	}
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(
	repo shared.OutboxRepository,
	publisher Publisher,
	serializer *EventSerializer,
	config RelayConfig,
	logger *zap.Logger,
	opts ...RelayOption,
) *OutboxRelay {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRelayConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRelayConfig().PollInterval
	}
	if config.ClaimLease <= 0 {
		config.ClaimLease = DefaultRelayConfig().ClaimLease
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &OutboxRelay{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox_relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start starts the polling loop
func (r *OutboxRelay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("outbox relay started",
		zap.Int("batch_size", r.config.BatchSize),
		zap.Duration("poll_interval", r.config.PollInterval),
		zap.Bool("idempotency", r.store != nil),
	)
	return nil
}

// Stop stops the loop and waits for the in-flight batch
func (r *OutboxRelay) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("outbox relay stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *OutboxRelay) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox relay batch failed", zap.Error(err))
			}
		}
	}
}

// RunOnce releases expired claims, then relays one batch of pending entries
// and one batch of due retries. It returns how many entries were claimed.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	released, err := r.repo.ReleaseExpiredClaims(ctx, time.Now().Add(-r.config.ClaimLease))
	if err != nil {
		return 0, err
	}
	if released > 0 {
		r.logger.Warn("released expired outbox claims", zap.Int64("count", released))
	}

	pending, err := r.repo.FindPending(ctx, r.config.BatchSize)
	if err != nil {
		return 0, err
	}
	claimed, err := r.processEntries(ctx, pending)
	if err != nil {
		return claimed, err
	}

	retryable, err := r.repo.FindRetryable(ctx, time.Now(), r.config.BatchSize)
	if err != nil {
		return claimed, err
	}
	n, err := r.processEntries(ctx, retryable)
	return claimed + n, err
}

func (r *OutboxRelay) processEntries(ctx context.Context, entries []*shared.OutboxEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := r.repo.MarkProcessing(ctx, ids)
	if err != nil {
		return 0, err
	}
	for _, entry := range claimed {
		r.processEntry(ctx, entry)
	}
	return len(claimed), nil
}

func (r *OutboxRelay) processEntry(ctx context.Context, entry *shared.OutboxEntry) {
	eventID := entry.EventID.String()

	if r.store != nil {
		seen, err := r.store.IsProcessed(ctx, eventID)
		if err != nil {
			r.logger.Warn("idempotency check failed, publishing anyway",
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		} else if seen {
			r.logger.Debug("event already published, skipping", zap.String("event_id", eventID))
			r.markSent(ctx, entry, OutcomeDuplicate)
			return
		}
	}

	if _, err := r.serializer.Deserialize(entry.EventType, entry.Payload); err != nil {
		r.markFailed(ctx, entry, err)
		return
	}

	publishCtx := ctx
	if r.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(ctx, r.config.PublishTimeout)
		defer cancel()
	}
	if err := r.publisher.Publish(publishCtx, entry); err != nil {
		if ctx.Err() != nil {
			r.release(ctx, entry)
			return
		}
		r.markFailed(ctx, entry, err)
		return
	}

	if r.store != nil {
		if _, err := r.store.MarkProcessed(ctx, eventID, r.config.IdempotencyTTL); err != nil {
			r.logger.Warn("failed to record published event", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	r.markSent(ctx, entry, OutcomeSent)
}

// release puts an entry interrupted by Stop back to PENDING. This and the
// mark methods write on an uncancelled context so a Stop during a batch never
// leaves a claimed entry in PROCESSING.
func (r *OutboxRelay) release(ctx context.Context, entry *shared.OutboxEntry) {
	if err := entry.Release(); err != nil {
		return
	}
	if err := r.repo.Update(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Error("failed to release entry",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}
	r.logger.Info("relay stopped mid-publish, entry released",
		zap.String("event_id", entry.EventID.String()),
	)
}

func (r *OutboxRelay) markSent(ctx context.Context, entry *shared.OutboxEntry, outcome string) {
	ctx = context.WithoutCancel(ctx)
	entry.MarkSent()
	if err := r.repo.Update(ctx, entry); err != nil {
		r.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}
	r.metrics.RecordOutboxPublish(ctx, entry.EventType, outcome)
	r.logger.Debug("event relayed",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("outcome", outcome),
	)
}

func (r *OutboxRelay) markFailed(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	ctx = context.WithoutCancel(ctx)
	entry.MarkFailed(cause.Error())
	outcome := OutcomeFailed
	if entry.IsDead() {
		outcome = OutcomeDead
		r.logger.Warn("event moved to dead letter",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	} else {
		r.logger.Error("failed to relay event",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.Int("retry_count", entry.RetryCount),
			zap.Error(cause),
		)
	}
	r.metrics.RecordOutboxPublish(ctx, entry.EventType, outcome)
	if err := r.repo.Update(ctx, entry); err != nil {
		r.logger.Error("failed to update entry", zap.Error(err))
	}
}
