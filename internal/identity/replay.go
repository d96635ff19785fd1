package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "crowdfund:replay:"

// ReplayGuard 记录已接受的签名请求，同一请求在有效期内只放行一次
type ReplayGuard interface {
	// Claim 首次出现返回 true
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryReplayGuard 单实例使用的进程内记录
type MemoryReplayGuard struct {
	mu        sync.Mutex
	seen      map[string]time.Time // key -> 过期时间
	lastPrune time.Time
	nowFn     func() time.Time
}

// NewMemoryReplayGuard 创建进程内防重放记录
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[string]time.Time), nowFn: time.Now}
}

func (g *MemoryReplayGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	if now.Sub(g.lastPrune) >= ttl {
		for k, exp := range g.seen {
			if !now.Before(exp) {
				delete(g.seen, k)
			}
		}
		g.lastPrune = now
	}

	if exp, ok := g.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}

// RedisReplayGuard 多实例共享的记录（SET NX PX）
type RedisReplayGuard struct {
	client *redis.Client
}

// NewRedisReplayGuard 创建 redis 防重放记录
func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

func (g *RedisReplayGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, replayKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim request %s: %w", key, err)
	}
	return ok, nil
}
