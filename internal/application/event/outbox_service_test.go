package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockOutboxRepository is a mock implementation of shared.OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxRepository) ReleaseExpiredClaims(ctx context.Context, claimedBefore time.Time) (int64, error) {
	args := m.Called(ctx, claimedBefore)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

func TestOutboxService_GetStats(t *testing.T) {
	repo := new(MockOutboxRepository)
	svc := NewOutboxService(repo, zap.NewNop())

	repo.On("CountByStatus", mock.Anything).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 3,
		shared.OutboxStatusSent:    10,
		shared.OutboxStatusFailed:  2,
		shared.OutboxStatusDead:    1,
	}, nil)

	stats, err := svc.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(0), stats.Processing)
	assert.Equal(t, int64(10), stats.Sent)
	assert.Equal(t, int64(16), stats.Total)
	assert.Equal(t, int64(5), stats.Backlog())
	repo.AssertExpectations(t)
}

func TestOutboxService_GetStats_StoreError(t *testing.T) {
	repo := new(MockOutboxRepository)
	svc := NewOutboxService(repo, nil)
	storeErr := &shared.InfrastructureError{Op: "count outbox entries", Err: errors.New("connection refused")}

	repo.On("CountByStatus", mock.Anything).Return(nil, storeErr)

	stats, err := svc.GetStats(context.Background())

	assert.Nil(t, stats)
	assert.True(t, shared.IsRetryable(err))
}

func TestOutboxService_LogStats_WarnsOnDeadEntries(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := new(MockOutboxRepository)
	svc := NewOutboxService(repo, zap.New(core))

	repo.On("CountByStatus", mock.Anything).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusDead: 4,
	}, nil)

	svc.LogStats(context.Background())

	entries := logs.FilterMessage("Outbox has dead-lettered entries").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(4), entries[0].ContextMap()["dead"])
}
