package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockOutboxRepository is an in-memory outbox for relay tests
type mockOutboxRepository struct {
	mu           sync.Mutex
	entries      map[uuid.UUID]*shared.OutboxEntry
	findErr      error
	updateCalled int
	// context errors seen by Update, one per call
	updateCtxErrs []error
}

func newMockOutboxRepository() *mockOutboxRepository {
	return &mockOutboxRepository{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *mockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *mockOutboxRepository) byStatus(match func(*shared.OutboxEntry) bool, limit int) []*shared.OutboxEntry {
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if match(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (r *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.byStatus(func(e *shared.OutboxEntry) bool { return e.Status == shared.OutboxStatusPending }, limit), nil
}

func (r *mockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byStatus(func(e *shared.OutboxEntry) bool {
		return e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(before)
	}, limit), nil
}

func (r *mockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.OutboxEntry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok && e.MarkProcessing() == nil {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *mockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalled++
	r.updateCtxErrs = append(r.updateCtxErrs, ctx.Err())
	r.entries[entry.ID] = entry
	return nil
}

func (r *mockOutboxRepository) ReleaseExpiredClaims(ctx context.Context, claimedBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released int64
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusProcessing && e.UpdatedAt.Before(claimedBefore) {
			e.Status = shared.OutboxStatusPending
			e.NextRetryAt = nil
			e.UpdatedAt = time.Now()
			released++
		}
	}
	return released, nil
}

func (r *mockOutboxRepository) status(id uuid.UUID) shared.OutboxStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].Status
}

func (r *mockOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

// fakePublisher records published entries and fails while failures > 0
type fakePublisher struct {
	mu        sync.Mutex
	published []*shared.OutboxEntry
	failures  int
}

func (p *fakePublisher) Publish(ctx context.Context, entry *shared.OutboxEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, entry)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// blockingPublisher holds every publish until its context ends
type blockingPublisher struct {
	started chan struct{}
	once    sync.Once
}

func (p *blockingPublisher) Publish(ctx context.Context, entry *shared.OutboxEntry) error {
	p.once.Do(func() { close(p.started) })
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingPublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// memoryStore is a minimal idempotency store
type memoryStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newMemoryStore() *memoryStore { return &memoryStore{seen: make(map[string]bool)} }

func (s *memoryStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.seen[id] {
		return false, nil
	}
	s.seen[id] = true
	return true, nil
}

func (s *memoryStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return s.seen[id], nil
}

func (s *memoryStore) Close() error { return nil }

func seedEntry(t *testing.T, repo *mockOutboxRepository) *shared.OutboxEntry {
	t.Helper()
	evt := newConfirmedEvent(t)
	payload, err := NewDefaultSerializer().Serialize(evt)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(evt, payload)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxRelay_PublishesPendingEntries(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &fakePublisher{}
	store := newMemoryStore()
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.NewNop(),
		WithIdempotencyStore(store))

	e1 := seedEntry(t, repo)
	e2 := seedEntry(t, repo)

	n, err := relay.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, pub.count())
	assert.Equal(t, shared.OutboxStatusSent, repo.entries[e1.ID].Status)
	assert.Equal(t, shared.OutboxStatusSent, repo.entries[e2.ID].Status)
	assert.NotNil(t, repo.entries[e1.ID].ProcessedAt)
	assert.True(t, store.seen[e1.EventID.String()])
}

func TestOutboxRelay_FailureSchedulesRetry(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &fakePublisher{failures: 1}
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.NewNop())
	entry := seedEntry(t, repo)

	_, err := relay.RunOnce(context.Background())
	require.NoError(t, err)

	got := repo.entries[entry.ID]
	assert.Equal(t, shared.OutboxStatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "broker unavailable", got.LastError)
	require.NotNil(t, got.NextRetryAt)
	assert.True(t, got.NextRetryAt.After(time.Now()))
	assert.Zero(t, pub.count())
}

func TestOutboxRelay_RetriesDueEntries(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &fakePublisher{}
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.NewNop())
	entry := seedEntry(t, repo)
	entry.MarkFailed("earlier failure")
	past := time.Now().Add(-time.Second)
	entry.NextRetryAt = &past

	n, err := relay.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, shared.OutboxStatusSent, repo.entries[entry.ID].Status)
}

func TestOutboxRelay_DeadAfterMaxRetries(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	repo := newMockOutboxRepository()
	pub := &fakePublisher{failures: 1}
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.New(core))
	entry := seedEntry(t, repo)
	entry.MaxRetries = 1

	_, err := relay.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, shared.OutboxStatusDead, repo.entries[entry.ID].Status)
	assert.Nil(t, repo.entries[entry.ID].NextRetryAt)
	assert.Equal(t, 1, recorded.FilterMessage("event moved to dead letter").Len())
}

func TestOutboxRelay_SkipsAlreadyPublishedEvent(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &fakePublisher{}
	store := newMemoryStore()
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.NewNop(),
		WithIdempotencyStore(store))
	entry := seedEntry(t, repo)
	store.seen[entry.EventID.String()] = true

	_, err := relay.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, pub.count())
	assert.Equal(t, shared.OutboxStatusSent, repo.entries[entry.ID].Status)
}

func TestOutboxRelay_StoreErrorStillPublishes(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &fakePublisher{}
	store := newMemoryStore()
	store.err = errors.New("redis down")
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.NewNop(),
		WithIdempotencyStore(store))
	entry := seedEntry(t, repo)

	_, err := relay.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, shared.OutboxStatusSent, repo.entries[entry.ID].Status)
}

func TestOutboxRelay_UnknownEventTypeFails(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &fakePublisher{}
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.NewNop())
	entry := seedEntry(t, repo)
	entry.EventType = "SomethingElse"

	_, err := relay.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, pub.count())
	assert.Equal(t, shared.OutboxStatusFailed, repo.entries[entry.ID].Status)
	assert.Contains(t, repo.entries[entry.ID].LastError, "unknown event type")
}

func TestOutboxRelay_FindErrorIsReturned(t *testing.T) {
	repo := newMockOutboxRepository()
	repo.findErr = errors.New("connection reset")
	relay := NewOutboxRelay(repo, &fakePublisher{}, NewDefaultSerializer(), DefaultRelayConfig(), nil)

	_, err := relay.RunOnce(context.Background())

	assert.EqualError(t, err, "connection reset")
}

func TestOutboxRelay_StartStop(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &fakePublisher{}
	cfg := DefaultRelayConfig()
	cfg.PollInterval = 10 * time.Millisecond
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), cfg, zap.NewNop())
	seedEntry(t, repo)

	require.NoError(t, relay.Start(context.Background()))
	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, relay.Stop(ctx))
}

func TestOutboxRelay_StopMidPublishReleasesEntry(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &blockingPublisher{started: make(chan struct{})}
	cfg := DefaultRelayConfig()
	cfg.PollInterval = 10 * time.Millisecond
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), cfg, zap.NewNop())
	first := seedEntry(t, repo)
	second := seedEntry(t, repo)

	require.NoError(t, relay.Start(context.Background()))
	select {
	case <-pub.started:
	case <-time.After(time.Second):
		t.Fatal("relay never published")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, relay.Stop(ctx))

	for _, entry := range []*shared.OutboxEntry{first, second} {
		assert.Equal(t, shared.OutboxStatusPending, repo.status(entry.ID))
		assert.Zero(t, repo.entries[entry.ID].RetryCount)
	}
	require.NotEmpty(t, repo.updateCtxErrs)
	for _, err := range repo.updateCtxErrs {
		assert.NoError(t, err)
	}
}

func TestOutboxRelay_PublishTimeoutCountsAsFailure(t *testing.T) {
	repo := newMockOutboxRepository()
	pub := &blockingPublisher{started: make(chan struct{})}
	cfg := DefaultRelayConfig()
	cfg.PublishTimeout = 10 * time.Millisecond
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), cfg, zap.NewNop())
	entry := seedEntry(t, repo)

	_, err := relay.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, repo.status(entry.ID))
	assert.Equal(t, 1, repo.entries[entry.ID].RetryCount)
}

func TestOutboxRelay_ReclaimsExpiredClaims(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	repo := newMockOutboxRepository()
	pub := &fakePublisher{}
	relay := NewOutboxRelay(repo, pub, NewDefaultSerializer(), DefaultRelayConfig(), zap.New(core))

	abandoned := seedEntry(t, repo)
	require.NoError(t, abandoned.MarkProcessing())
	abandoned.UpdatedAt = time.Now().Add(-time.Hour)
	inFlight := seedEntry(t, repo)
	require.NoError(t, inFlight.MarkProcessing())

	n, err := relay.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, shared.OutboxStatusSent, repo.status(abandoned.ID))
	assert.Equal(t, shared.OutboxStatusProcessing, repo.status(inFlight.ID))
	assert.Equal(t, 1, recorded.FilterMessage("released expired outbox claims").Len())
}
