package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func newEntry(t *testing.T, createdAt time.Time) *shared.OutboxEntry {
	t.Helper()
	entry := shared.NewOutboxEntry(newConfirmedEvent(t), []byte(`{"ok":true}`))
	entry.CreatedAt = createdAt
	entry.UpdatedAt = createdAt
	return entry
}

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	older := newEntry(t, base)
	newer := newEntry(t, base.Add(time.Second))
	require.NoError(t, repo.Save(ctx, newer, older))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, newer.ID, pending[1].ID)
	assert.Equal(t, older.EventID, pending[0].EventID)
	assert.Equal(t, []byte(`{"ok":true}`), pending[0].Payload)

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_SaveNothing(t *testing.T) {
	db, _ := setupMockDB(t)
	assert.NoError(t, NewGormOutboxRepository(db).Save(context.Background()))
}

func TestGormOutboxRepository_MarkProcessingClaimsOnce(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newEntry(t, time.Now())
	require.NoError(t, repo.Save(ctx, entry))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	assert.Empty(t, again)

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGormOutboxRepository_UpdateAndRetryable(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newEntry(t, time.Now())
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkFailed("timeout")
	require.NoError(t, repo.Update(ctx, entry))

	notYet, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	due, err := repo.FindRetryable(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].RetryCount)
	assert.Equal(t, "timeout", due[0].LastError)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])
}

func TestGormOutboxRepository_ReleaseExpiredClaims(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	stale := newEntry(t, time.Now().Add(-time.Hour))
	fresh := newEntry(t, time.Now())
	require.NoError(t, repo.Save(ctx, stale, fresh))
	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{stale.ID, fresh.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	// the stale claim was taken by a relay that never came back
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).
		Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error)

	released, err := repo.ReleaseExpiredClaims(ctx, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, stale.ID, pending[0].ID)

	reclaimed, err := repo.MarkProcessing(ctx, []uuid.UUID{stale.ID, fresh.ID})
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, stale.ID, reclaimed[0].ID)
}

func TestGormOutboxRepository_MarkProcessingSkipsLockedRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))
	mock.ExpectCommit()

	claimed, err := repo.MarkProcessing(context.Background(), []uuid.UUID{id})

	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_DriverErrorIsInfrastructure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectQuery(`SELECT .* FROM "outbox_entries"`).
		WillReturnError(assert.AnError)

	_, err := repo.FindPending(context.Background(), 5)

	require.Error(t, err)
	assert.Equal(t, shared.KindInfrastructure, shared.KindOf(err))
	assert.ErrorIs(t, err, assert.AnError)
}
