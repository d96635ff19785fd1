package lock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blues/crowdfund/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "crowdfund:lock:"
	retryInterval  = 50 * time.Millisecond
)

// 仅当值仍是自己的令牌时才删除，避免释放他人在过期后获得的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Connect 根据 URL 或 host:port 创建 redis 客户端
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisLocker 多实例部署时使用的分布式锁（SET NX PX + 令牌）
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker 创建 redis 锁，ttl 为持有上限
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// Lock 轮询 SET NX 直到成功或 ctx 结束
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlockScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				logger.Warn("Failed to release lock %s: %v", key, err)
			}
		})
	}, nil
}
