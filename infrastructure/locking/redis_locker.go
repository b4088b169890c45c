package locking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"fitquest/domain/shared"
	"fitquest/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockTimeout 在 WaitTimeout 内未能获得锁
var ErrLockTimeout = errors.New("lock acquisition timeout")

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// 只续期自己持有的锁
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end`)

type RedisLockerConfig struct {
	Prefix       string
	TTL          time.Duration
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

func (c *RedisLockerConfig) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 10 * time.Second
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 5 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
}

// RedisLocker 跨进程按键互斥：SET NX PX 加锁，持有期间按 TTL/2 续期，Lua 比较后删除
type RedisLocker struct {
	client redis.UniversalClient
	cfg    RedisLockerConfig
}

func NewRedisLocker(client redis.UniversalClient, cfg RedisLockerConfig) *RedisLocker {
	cfg.applyDefaults()
	return &RedisLocker{client: client, cfg: cfg}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.cfg.Prefix + key
	token := newLockToken()
	deadline := time.Now().Add(l.cfg.WaitTimeout)

	for {
		acquired, err := l.client.SetNX(ctx, fullKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, fullKey)
		}
		timer := time.NewTimer(l.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	go l.renew(fullKey, token, stop)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		close(stop)

		// 调用方 ctx 可能已取消，释放使用独立的短超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err(); err != nil {
			logger.Warn("failed to release redis lock", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}

func (l *RedisLocker) renew(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.cfg.TTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.cfg.TTL/2)
			n, err := renewScript.Run(ctx, l.client, []string{key}, token, l.cfg.TTL.Milliseconds()).Int64()
			cancel()
			if err != nil || n == 0 {
				logger.Warn("redis lock lost before release", zap.String("key", key), zap.Error(err))
				return
			}
		}
	}
}

// CanConnect 用于就绪探测
func (l *RedisLocker) CanConnect(ctx context.Context) bool {
	return l.client.Ping(ctx).Err() == nil
}

func newLockToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

var _ shared.KeyLocker = (*RedisLocker)(nil)
