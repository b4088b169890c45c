package locking

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(client, RedisLockerConfig{Prefix: "test:"})

	unlock, err := l.Lock(context.Background(), "league:u1:2025-W11")
	require.Error(t, err)
	assert.Nil(t, unlock)
	assert.False(t, l.CanConnect(context.Background()))
}

// 需要 FITQUEST_TEST_REDIS_ADDR 指向可用的 Redis
func TestRedisLocker_ExcludesSecondHolder(t *testing.T) {
	addr := os.Getenv("FITQUEST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FITQUEST_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	cfg := RedisLockerConfig{
		Prefix:       "fitquest:test:" + uuid.NewString() + ":",
		TTL:          2 * time.Second,
		WaitTimeout:  200 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	}
	first := NewRedisLocker(client, cfg)
	second := NewRedisLocker(client, cfg)
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "league:u1:2025-W11")
	require.NoError(t, err)

	_, err = second.Lock(ctx, "league:u1:2025-W11")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// 不同的键互不影响
	other, err := second.Lock(ctx, "league:u2:2025-W11")
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := second.Lock(ctx, "league:u1:2025-W11")
	require.NoError(t, err)
	again()
}
