package cache

import (
	"context"
	"testing"

	"github.com/erp/ordercore/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// port 1 is reserved and refuses connections immediately
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestIdempotencyStoreFactory_Memory(t *testing.T) {
	f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "memory"}, unreachableRedis)

	store, err := f.CreateStore(context.Background())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_UnknownBackend(t *testing.T) {
	f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "etcd"}, unreachableRedis)

	_, err := f.CreateStore(context.Background())
	assert.ErrorContains(t, err, "etcd")
}

func TestIdempotencyStoreFactory_RedisUnavailable(t *testing.T) {
	t.Run("without fallback", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "redis"}, unreachableRedis)

		_, err := f.CreateStore(context.Background())
		assert.ErrorContains(t, err, "redis required")
	})

	t.Run("with fallback", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		f := NewIdempotencyStoreFactory(
			config.IdempotencyConfig{Backend: "redis"},
			unreachableRedis,
			WithLogger(zap.New(core)),
			WithInMemoryFallback(true),
		)

		store, err := f.CreateStore(context.Background())
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, logs.FilterMessage("Redis unavailable, falling back to in-memory idempotency store").Len())
	})
}
