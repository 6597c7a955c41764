package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

// NewClient builds and verifies the Redis client backing the round-lock
// store. Both redis:// URLs and bare host:port addresses are accepted so the
// same key works for container and local runs.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis address: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisRoundLocker serializes round mutation across service instances with
// SET-NX lease locks. The lease TTL bounds how long a crashed holder can
// block a round; release is token-checked so an expired holder cannot free
// a successor's lock.
type RedisRoundLocker struct {
	client        *redis.Client
	leaseTTL      time.Duration
	retryInterval time.Duration
}

func NewRedisRoundLocker(client *redis.Client, leaseTTL, retryInterval time.Duration) *RedisRoundLocker {
	if leaseTTL <= 0 {
		leaseTTL = 30 * time.Second
	}
	if retryInterval <= 0 {
		retryInterval = 50 * time.Millisecond
	}
	return &RedisRoundLocker{client: client, leaseTTL: leaseTTL, retryInterval: retryInterval}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *RedisRoundLocker) Acquire(ctx context.Context, roundID string) (func(), error) {
	key := "pool:round_lock:" + roundID
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.leaseTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, domain.ErrLockUnavailable
		case <-time.After(l.retryInterval):
		}
	}
	release := func() {
		_, _ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Result()
	}
	return release, nil
}
